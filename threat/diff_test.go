package threat

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func rec(id string, psCum float64, ts *int) Record {
	r := Record{ID: id, FullName: "(" + id + ")", PSCum: decimal.NewFromFloat(psCum)}
	if ts != nil {
		r.TSMax = TorinoOf(*ts)
	}
	return r
}

func intp(v int) *int { return &v }

func snap(records ...Record) Snapshot {
	return Snapshot{Records: records}
}

func TestDiffReportsNewRecord(t *testing.T) {
	baseline := snap(rec("A", -2.0, nil))
	latest := snap(rec("A", -2.0, nil), rec("B", -1.0, intp(3)))

	got := Diff(baseline, latest)
	if len(got) != 1 {
		t.Fatalf("expected 1 change, got %d (%+v)", len(got), got)
	}
	if got[0].ID != "B" || !got[0].IsNew {
		t.Fatalf("expected new record B, got %+v", got[0])
	}
	if got[0].Kind() != KindNew {
		t.Fatalf("expected KindNew, got %v", got[0].Kind())
	}
}

func TestDiffTorinoEscalationWithUnchangedPalermo(t *testing.T) {
	baseline := snap(rec("A", -2.0, intp(0)))
	latest := snap(rec("A", -2.0, intp(1)))

	got := Diff(baseline, latest)
	if len(got) != 1 || got[0].ID != "A" || got[0].IsNew {
		t.Fatalf("expected escalated A, got %+v", got)
	}
	if got[0].Kind().Label() != "INCREASED" {
		t.Fatalf("expected INCREASED label, got %q", got[0].Kind().Label())
	}
}

func TestDiffIdenticalSnapshotsIsEmpty(t *testing.T) {
	s := snap(rec("A", -2.0, nil), rec("B", -1.5, intp(0)), rec("C", -3.1, intp(2)))
	if got := Diff(s, s); len(got) != 0 {
		t.Fatalf("expected no changes, got %+v", got)
	}
}

func TestDiffTorinoTriState(t *testing.T) {
	cases := []struct {
		name string
		prev *int
		cur  *int
		want bool
	}{
		{"null to null", nil, nil, false},
		{"null to zero", nil, intp(0), true},
		{"null to present", nil, intp(4), true},
		{"present to null", intp(0), nil, false},
		{"equal", intp(2), intp(2), false},
		{"lower", intp(3), intp(1), false},
		{"higher", intp(1), intp(2), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Escalated(rec("X", -2, tc.prev), rec("X", -2, tc.cur))
			if got != tc.want {
				t.Fatalf("Escalated = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDiffPalermoStrictComparison(t *testing.T) {
	prev := rec("A", -2.5, nil)
	same := rec("A", -2.5, nil)
	lower := rec("A", -2.6, nil)
	higher := rec("A", -2.49, nil)
	if Escalated(prev, same) {
		t.Fatalf("equal Palermo values must not escalate")
	}
	if Escalated(prev, lower) {
		t.Fatalf("lower Palermo value must not escalate")
	}
	if !Escalated(prev, higher) {
		t.Fatalf("higher Palermo value must escalate")
	}
}

func TestDiffIgnoresDroppedRecords(t *testing.T) {
	baseline := snap(rec("A", -2, nil), rec("GONE", 0, intp(5)))
	latest := snap(rec("A", -2, nil))
	if got := Diff(baseline, latest); len(got) != 0 {
		t.Fatalf("expected dropped record to be ignored, got %+v", got)
	}
}

func TestDiffPreservesLatestOrderAndMembership(t *testing.T) {
	baseline := snap(rec("B", -3, nil), rec("D", -3, intp(0)))
	latest := snap(rec("E", -4, nil), rec("D", -3, intp(1)), rec("A", -1, nil), rec("B", -3, nil))

	got := Diff(baseline, latest)
	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	if want := []string{"E", "D", "A"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected ids: got %v want %v", ids, want)
	}

	inLatest := latest.index()
	for _, c := range got {
		if _, ok := inLatest[c.ID]; !ok {
			t.Fatalf("change %s not present in latest", c.ID)
		}
	}
}

func TestDiffIsPureAndDeterministic(t *testing.T) {
	baseline := snap(rec("A", -2, intp(0)), rec("B", -1, nil))
	latest := snap(rec("A", -1.9, intp(0)), rec("C", -5, nil))
	before := snap(append([]Record(nil), baseline.Records...)...)

	first := Diff(baseline, latest)
	second := Diff(baseline, latest)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("diff not deterministic: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(before, baseline) {
		t.Fatalf("baseline mutated: %+v", baseline)
	}
}

func TestAlertPiecesBlocks(t *testing.T) {
	changes := []Change{
		{Record: Record{ID: "1", FullName: "(2023 DW)", Range: "2046-2054", TSMax: TorinoOf(1)}, IsNew: true},
		{Record: Record{ID: "2", Designation: "2020 VW"}},
	}
	text := strings.Join(AlertPieces(changes), "")
	want := "NEW THREAT!\n(2023 DW)\nYear: 2046-2054\nThreat level: 1\n" +
		"INCREASED THREAT!\n2020 VW\nYear: ?\nThreat level: n/a"
	if text != want {
		t.Fatalf("unexpected alert text:\n%q\nwant\n%q", text, want)
	}
	if strings.Contains(text, "\n\n") {
		t.Fatalf("blocks should not be separated by a blank line: %q", text)
	}
}
