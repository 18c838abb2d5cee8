package threat

// Kind classifies a reported change.
type Kind int

const (
	KindNew Kind = iota
	KindIncreased
)

// Label returns the alert heading for the kind.
func (k Kind) Label() string {
	switch k {
	case KindNew:
		return "NEW"
	case KindIncreased:
		return "INCREASED"
	default:
		return "UNK"
	}
}

// Change is a record reported by Diff. IsNew is true when the id was absent
// from the baseline and false when an existing object escalated.
type Change struct {
	Record
	IsNew bool
}

// Kind returns KindNew or KindIncreased.
func (c Change) Kind() Kind {
	if c.IsNew {
		return KindNew
	}
	return KindIncreased
}

// Diff returns the records of latest that are absent from baseline or whose
// threat level rose, in latest's order. Records that only exist in baseline
// are ignored. Neither snapshot is modified. The result is nil when nothing
// changed.
func Diff(baseline, latest Snapshot) []Change {
	prev := baseline.index()
	var out []Change
	for _, rec := range latest.Records {
		old, ok := prev[rec.ID]
		if !ok {
			out = append(out, Change{Record: rec, IsNew: true})
			continue
		}
		if Escalated(*old, rec) {
			out = append(out, Change{Record: rec, IsNew: false})
		}
	}
	return out
}

// Escalated reports whether cur is a higher threat than prev: a strictly
// larger cumulative Palermo value, or a higher Torino value where any present
// value outranks an unclassified one.
func Escalated(prev, cur Record) bool {
	if cur.PSCum.GreaterThan(prev.PSCum) {
		return true
	}
	return cur.TSMax.Greater(prev.TSMax)
}
