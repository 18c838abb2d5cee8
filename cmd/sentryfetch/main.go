// Command sentryfetch polls the Sentry catalog once and prints the objects
// above the configured Palermo threshold. With --baseline it also prints what
// the monitor would have alerted on relative to a saved snapshot.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"asentry/config"
	"asentry/sentry"
	"asentry/threat"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/pflag"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	var (
		configPath   = pflag.StringP("config", "c", "", "Path to the monitor configuration (defaults apply when empty)")
		baselinePath = pflag.String("baseline", "", "Saved snapshot to diff against")
		savePath     = pflag.String("save", "", "Write the fetched snapshot to this file")
		quiet        = pflag.BoolP("quiet", "q", false, "Only print changes")
	)
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Sentry.TimeoutSeconds+5)*time.Second)
	defer cancel()

	snap, err := sentry.NewClient(cfg.Sentry, log.Default()).FetchSnapshot(ctx)
	if err != nil {
		log.Fatalf("fetch failed: %v", err)
	}
	if !*quiet {
		printSnapshot(os.Stdout, snap)
	}

	if *baselinePath != "" {
		baseline, err := readSnapshot(*baselinePath)
		if err != nil {
			log.Fatalf("failed to read baseline: %v", err)
		}
		changes := threat.Diff(baseline, snap)
		fmt.Fprintf(os.Stdout, "%d change(s) since %s\n", len(changes), humanize.Time(baseline.FetchedAt))
		for _, c := range changes {
			fmt.Fprintln(os.Stdout, threat.Summary(c))
		}
	}

	if *savePath != "" {
		if err := writeSnapshot(*savePath, snap); err != nil {
			log.Fatalf("failed to save snapshot: %v", err)
		}
		fmt.Fprintf(os.Stdout, "Wrote %d records to %s\n", snap.Len(), *savePath)
	}
}

func printSnapshot(w io.Writer, snap threat.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRANGE\tPS_CUM\tPS_MAX\tTS_MAX\tN_IMP")
	for _, r := range snap.Records {
		name := r.FullName
		if name == "" {
			name = r.Designation
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n", r.ID, name, r.Range, r.PSCum, r.PSMax, r.TSMax, r.NImp)
	}
	tw.Flush()
	fmt.Fprintf(w, "%s objects, digest %016x\n", humanize.Comma(int64(snap.Len())), snap.Digest)
}

func readSnapshot(path string) (threat.Snapshot, error) {
	var snap threat.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode %s: %w", path, err)
	}
	return snap, nil
}

func writeSnapshot(path string, snap threat.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
