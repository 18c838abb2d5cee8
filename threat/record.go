// Package threat models Sentry impact-risk records and decides which objects
// are new or have escalated between two catalog snapshots.
package threat

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one risk assessment for one object, keyed by its catalog id.
type Record struct {
	ID          string
	Designation string
	FullName    string
	PSCum       decimal.Decimal // cumulative Palermo Scale
	PSMax       decimal.Decimal // maximum Palermo Scale
	TSMax       Torino
	ImpactProb  float64
	Diameter    float64 // km
	VInf        float64 // km/s
	Range       string  // potential impact years, e.g. "2056-2113"
	LastObs     string
	LastObsJD   float64
	H           float64 // absolute magnitude
	NImp        int
}

// Torino is a nullable Torino Scale value. The zero value is "not yet
// classified", which orders below every present value.
type Torino struct {
	Value int
	Valid bool
}

// TorinoOf returns a present Torino value.
func TorinoOf(v int) Torino {
	return Torino{Value: v, Valid: true}
}

// Greater reports whether t is a strictly higher threat than other.
// A present value beats an absent one; two absent values are equal.
func (t Torino) Greater(other Torino) bool {
	if !t.Valid {
		return false
	}
	if !other.Valid {
		return true
	}
	return t.Value > other.Value
}

func (t Torino) String() string {
	if !t.Valid {
		return "n/a"
	}
	return strconv.Itoa(t.Value)
}

// Snapshot is one complete fetched catalog. Record order is preserved for
// display; ids are unique within a snapshot.
type Snapshot struct {
	Records   []Record
	FetchedAt time.Time
	Digest    uint64 // xxh3 of the raw payload, zero when not fetched over the wire
}

// Len returns the number of records.
func (s Snapshot) Len() int {
	return len(s.Records)
}

func (s Snapshot) index() map[string]*Record {
	idx := make(map[string]*Record, len(s.Records))
	for i := range s.Records {
		idx[s.Records[i].ID] = &s.Records[i]
	}
	return idx
}
