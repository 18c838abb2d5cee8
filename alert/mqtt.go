package alert

import (
	"fmt"
	"log"
	"time"

	"asentry/config"
	"asentry/threat"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const publishTimeout = 10 * time.Second

// publishClient is the part of mqtt.Client the publisher uses.
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// ChangeMessage is the JSON document published for one change.
type ChangeMessage struct {
	RunID      string          `json:"run_id"`
	DetectedAt time.Time       `json:"detected_at"`
	Kind       string          `json:"kind"`
	ID         string          `json:"id"`
	Des        string          `json:"des"`
	FullName   string          `json:"fullname"`
	PSCum      decimal.Decimal `json:"ps_cum"`
	PSMax      decimal.Decimal `json:"ps_max"`
	TSMax      *int            `json:"ts_max"`
	ImpactProb float64         `json:"ip"`
	Range      string          `json:"range"`
	NImp       int             `json:"n_imp"`
}

// NewChangeMessage converts one diff result.
func NewChangeMessage(runID string, detectedAt time.Time, c threat.Change) ChangeMessage {
	msg := ChangeMessage{
		RunID:      runID,
		DetectedAt: detectedAt.UTC(),
		Kind:       c.Kind().Label(),
		ID:         c.ID,
		Des:        c.Designation,
		FullName:   c.FullName,
		PSCum:      c.PSCum,
		PSMax:      c.PSMax,
		ImpactProb: c.ImpactProb,
		Range:      c.Range,
		NImp:       c.NImp,
	}
	if c.TSMax.Valid {
		ts := c.TSMax.Value
		msg.TSMax = &ts
	}
	return msg
}

// Publisher sends change records to an MQTT broker. Publishing never blocks
// the caller; delivery failures are logged.
type Publisher struct {
	broker string
	port   int
	topic  string
	qos    byte
	id     string
	client publishClient
	logger *log.Logger
}

// NewPublisher prepares a publisher; Connect must be called before Publish.
func NewPublisher(cfg config.MQTTConfig, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{
		broker: cfg.Broker,
		port:   cfg.Port,
		topic:  cfg.Topic,
		qos:    byte(cfg.QoS),
		id:     cfg.ClientID,
		logger: logger,
	}
}

// Connect establishes the broker connection with auto-reconnect.
func (p *Publisher) Connect() error {
	opts := mqtt.NewClientOptions()
	brokerURL := fmt.Sprintf("tcp://%s:%d", p.broker, p.port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("%s-%d", p.id, time.Now().Unix()))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.logger.Printf("MQTT: connected to %s", brokerURL)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Printf("MQTT: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	p.logger.Printf("MQTT: connecting to %s...", brokerURL)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", brokerURL, token.Error())
	}
	p.client = client
	return nil
}

// Publish sends one message per change to <topic>/<kind>.
func (p *Publisher) Publish(runID string, detectedAt time.Time, changes []threat.Change) {
	if p == nil || p.client == nil {
		return
	}
	for _, c := range changes {
		msg := NewChangeMessage(runID, detectedAt, c)
		payload, err := json.Marshal(msg)
		if err != nil {
			p.logger.Printf("MQTT: encode %s: %v", c.ID, err)
			continue
		}
		topic := p.topic + "/" + msg.Kind
		token := p.client.Publish(topic, p.qos, false, payload)
		go p.await(topic, c.ID, token)
	}
}

func (p *Publisher) await(topic, id string, token mqtt.Token) {
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Printf("MQTT: publish %s to %s timed out", id, topic)
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Printf("MQTT: publish %s to %s failed: %v", id, topic, err)
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
	p.client = nil
}
