package threat

import (
	"fmt"
	"strings"
)

// AlertPieces renders changes as consecutive text fragments meant to be
// appended to a display one at a time. Each change becomes a block with the
// threat kind, the object's name, its impact years and its maximum Torino
// value. Each later block starts on the line after the previous block's
// last line.
func AlertPieces(changes []Change) []string {
	pieces := make([]string, 0, len(changes)*5)
	for i, c := range changes {
		if i > 0 {
			pieces = append(pieces, "\n")
		}
		pieces = append(pieces,
			c.Kind().Label()+" THREAT!\n",
			displayName(c.Record)+"\n",
			"Year: "+emptyOr(c.Range, "?")+"\n",
			"Threat level: "+c.TSMax.String(),
		)
	}
	return pieces
}

// Summary returns a single-line description used in logs.
func Summary(c Change) string {
	return fmt.Sprintf("%s %s (id=%s ps_cum=%s ts_max=%s range=%s)",
		c.Kind().Label(), displayName(c.Record), c.ID, c.PSCum.String(), c.TSMax.String(), emptyOr(c.Range, "?"))
}

func displayName(r Record) string {
	name := strings.TrimSpace(r.FullName)
	if name == "" {
		name = strings.TrimSpace(r.Designation)
	}
	if name == "" {
		name = r.ID
	}
	return name
}

func emptyOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
