package sentry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asentry/config"
)

const samplePayload = `{
  "signature": {"source": "NASA/JPL Sentry Data API", "version": "2.0"},
  "count": "2",
  "data": [
    {"id": "bJ79X00B", "des": "29075", "fullname": "29075 (1950 DA)", "ps_cum": "-0.93", "ps_max": "-0.93",
     "ts_max": null, "ip": "3.8e-05", "diameter": "1.3", "v_inf": "14.1", "range": "2880-2880",
     "last_obs": "2021-03-04", "last_obs_jd": "2459277.5", "h": "17.9", "n_imp": 1},
    {"id": "a0101955", "des": "101955", "fullname": "101955 Bennu (1999 RQ36)", "ps_cum": "-1.42", "ps_max": "-1.59",
     "ts_max": "0", "ip": "0.00037", "diameter": "0.49", "v_inf": "5.99", "range": "2178-2290",
     "last_obs": "2020-10-03", "last_obs_jd": "2459125.5", "h": "20.19", "n_imp": "157"}
  ]
}`

func testConfig(url string) config.SentryConfig {
	return config.SentryConfig{BaseURL: url, PSMin: -3, TimeoutSeconds: 5, UserAgent: "asentry-test"}
}

func TestFetchSnapshotDecodesRecords(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("ps-min")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), nil)
	snap, err := client.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot() error: %v", err)
	}
	if gotQuery != "-3" {
		t.Fatalf("expected ps-min=-3, got %q", gotQuery)
	}
	if gotUA != "asentry-test" {
		t.Fatalf("expected user agent to be sent, got %q", gotUA)
	}
	if snap.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", snap.Len())
	}
	if snap.Digest == 0 {
		t.Fatalf("expected payload digest to be set")
	}
	da := snap.Records[0]
	if da.ID != "bJ79X00B" || da.FullName != "29075 (1950 DA)" {
		t.Fatalf("unexpected first record: %+v", da)
	}
	if da.TSMax.Valid {
		t.Fatalf("expected null ts_max to decode as absent")
	}
	if da.PSCum.String() != "-0.93" {
		t.Fatalf("expected ps_cum -0.93, got %s", da.PSCum)
	}
	if da.NImp != 1 || da.Diameter != 1.3 || da.LastObsJD != 2459277.5 {
		t.Fatalf("unexpected numeric fields: %+v", da)
	}
	bennu := snap.Records[1]
	if !bennu.TSMax.Valid || bennu.TSMax.Value != 0 {
		t.Fatalf("expected present ts_max 0, got %+v", bennu.TSMax)
	}
	if bennu.NImp != 157 || bennu.Range != "2178-2290" {
		t.Fatalf("unexpected bennu fields: %+v", bennu)
	}
}

func TestFetchSnapshotNon200IsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).FetchSnapshot(context.Background())
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", fetchErr.Status)
	}
}

func TestFetchSnapshotTransportFailureIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewClient(testConfig(url), nil).FetchSnapshot(ctx)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != 0 {
		t.Fatalf("expected no status for transport failure, got %d", fetchErr.Status)
	}
}

func TestFetchSnapshotWrongSignatureIsFormatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"signature":{"source":"NASA/JPL Sentry Data API","version":"1.0"},"data":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).FetchSnapshot(context.Background())
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"invalid json", `{"signature":`, ""},
		{"wrong source", `{"signature":{"source":"other","version":"2.0"},"data":[]}`, ""},
		{"bad palermo", `{"signature":{"source":"NASA/JPL Sentry Data API","version":"2.0"},"data":[{"id":"x","ps_cum":"abc"}]}`, "ps_cum"},
		{"missing palermo", `{"signature":{"source":"NASA/JPL Sentry Data API","version":"2.0"},"data":[{"id":"x"}]}`, "ps_cum"},
		{"bad torino", `{"signature":{"source":"NASA/JPL Sentry Data API","version":"2.0"},"data":[{"id":"x","ps_cum":"-2","ts_max":"high"}]}`, "ts_max"},
		{"bad diameter", `{"signature":{"source":"NASA/JPL Sentry Data API","version":"2.0"},"data":[{"id":"x","ps_cum":"-2","diameter":"big"}]}`, "diameter"},
		{"missing id", `{"signature":{"source":"NASA/JPL Sentry Data API","version":"2.0"},"data":[{"ps_cum":"-2"}]}`, "id"},
		{"duplicate id", `{"signature":{"source":"NASA/JPL Sentry Data API","version":"2.0"},"data":[{"id":"x","ps_cum":"-2"},{"id":"x","ps_cum":"-1"}]}`, "id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.body), time.Now())
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected FormatError, got %v", err)
			}
			if formatErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q (%v)", tc.field, formatErr.Field, err)
			}
		})
	}
}

func TestDecodeEmptyCatalog(t *testing.T) {
	snap, err := Decode([]byte(`{"signature":{"source":"NASA/JPL Sentry Data API","version":"2.0"},"count":"0","data":[]}`), time.Now())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if snap.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d records", snap.Len())
	}
}
