package sentry

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"

	"asentry/threat"
)

const (
	// SignatureSource and SignatureVersion identify the only payload format
	// the decoder accepts.
	SignatureSource  = "NASA/JPL Sentry Data API"
	SignatureVersion = "2.0"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type payload struct {
	Signature struct {
		Source  string `json:"source"`
		Version string `json:"version"`
	} `json:"signature"`
	Count flexString   `json:"count"`
	Data  []wireRecord `json:"data"`
}

// wireRecord mirrors one Sentry summary row. Numeric values arrive as text.
type wireRecord struct {
	ID          flexString `json:"id"`
	Designation flexString `json:"des"`
	FullName    flexString `json:"fullname"`
	PSCum       flexString `json:"ps_cum"`
	PSMax       flexString `json:"ps_max"`
	TSMax       flexString `json:"ts_max"`
	IP          flexString `json:"ip"`
	Diameter    flexString `json:"diameter"`
	VInf        flexString `json:"v_inf"`
	Range       flexString `json:"range"`
	LastObs     flexString `json:"last_obs"`
	LastObsJD   flexString `json:"last_obs_jd"`
	H           flexString `json:"h"`
	NImp        flexString `json:"n_imp"`
}

// flexString accepts a JSON string, a bare number, or null.
type flexString struct {
	s  string
	ok bool
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = flexString{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString{s: s, ok: true}
		return nil
	}
	*f = flexString{s: string(b), ok: true}
	return nil
}

func (f flexString) present() bool {
	return f.ok && strings.TrimSpace(f.s) != ""
}

// Decode validates the payload signature and converts every row into a
// threat.Record. Any unparseable numeric field or duplicate id fails the whole
// snapshot.
func Decode(body []byte, fetchedAt time.Time) (threat.Snapshot, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return threat.Snapshot{}, &FormatError{Reason: "invalid JSON", Err: err}
	}
	if p.Signature.Source != SignatureSource || p.Signature.Version != SignatureVersion {
		return threat.Snapshot{}, &FormatError{
			Reason: "signature " + strconv.Quote(p.Signature.Source) + " version " + strconv.Quote(p.Signature.Version),
		}
	}

	records := make([]threat.Record, 0, len(p.Data))
	seen := make(map[string]struct{}, len(p.Data))
	for i := range p.Data {
		rec, err := convertRecord(&p.Data[i])
		if err != nil {
			return threat.Snapshot{}, err
		}
		if _, dup := seen[rec.ID]; dup {
			return threat.Snapshot{}, &FormatError{Reason: "duplicate id", ID: rec.ID, Field: "id"}
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
	}
	return threat.Snapshot{
		Records:   records,
		FetchedAt: fetchedAt,
		Digest:    xxh3.Hash(body),
	}, nil
}

func convertRecord(w *wireRecord) (threat.Record, error) {
	id := strings.TrimSpace(w.ID.s)
	if !w.ID.present() {
		return threat.Record{}, &FormatError{Reason: "missing id", Field: "id"}
	}
	rec := threat.Record{
		ID:          id,
		Designation: w.Designation.s,
		FullName:    strings.TrimSpace(w.FullName.s),
		Range:       w.Range.s,
		LastObs:     w.LastObs.s,
	}

	var err error
	if !w.PSCum.present() {
		return rec, &FormatError{Reason: "missing value", ID: id, Field: "ps_cum"}
	}
	if rec.PSCum, err = decimal.NewFromString(strings.TrimSpace(w.PSCum.s)); err != nil {
		return rec, &FormatError{Reason: "bad decimal", ID: id, Field: "ps_cum", Err: err}
	}
	if w.PSMax.present() {
		if rec.PSMax, err = decimal.NewFromString(strings.TrimSpace(w.PSMax.s)); err != nil {
			return rec, &FormatError{Reason: "bad decimal", ID: id, Field: "ps_max", Err: err}
		}
	}
	if w.TSMax.present() {
		v, err := strconv.Atoi(strings.TrimSpace(w.TSMax.s))
		if err != nil {
			return rec, &FormatError{Reason: "bad integer", ID: id, Field: "ts_max", Err: err}
		}
		rec.TSMax = threat.TorinoOf(v)
	}
	if w.NImp.present() {
		v, err := strconv.Atoi(strings.TrimSpace(w.NImp.s))
		if err != nil || v < 0 {
			return rec, &FormatError{Reason: "bad count", ID: id, Field: "n_imp", Err: err}
		}
		rec.NImp = v
	}

	floats := []struct {
		field string
		src   flexString
		dst   *float64
	}{
		{"ip", w.IP, &rec.ImpactProb},
		{"diameter", w.Diameter, &rec.Diameter},
		{"v_inf", w.VInf, &rec.VInf},
		{"last_obs_jd", w.LastObsJD, &rec.LastObsJD},
		{"h", w.H, &rec.H},
	}
	for _, f := range floats {
		if !f.src.present() {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(f.src.s), 64)
		if err != nil {
			return rec, &FormatError{Reason: "bad number", ID: id, Field: f.field, Err: err}
		}
		*f.dst = v
	}
	return rec, nil
}
