// Command journal summarizes the agent's action journal: what was
// bought, moved and swept, and what the guardian or the policies
// refused. Useful after the fact when the structured logs have rotated.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/lulabot/lula/internal/outbox"
)

func main() {
	log.SetFlags(0)
	path := flag.String("path", "data/journal.jsonl", "journal file")
	kind := flag.String("kind", "", "only this entry kind (order|transfer|withdrawal|skip)")
	since := flag.Duration("since", 0, "only entries newer than this (e.g. 24h); 0 means all")
	tail := flag.Int("tail", 10, "recent entries to print")
	flag.Parse()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	cutoff := time.Time{}
	if *since > 0 {
		cutoff = time.Now().UTC().Add(-*since)
	}

	var recs []outbox.Record
	byKind := map[string]int{}
	volume := map[string]float64{} // quote/asset volume per kind

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec outbox.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Printf("skipping malformed line: %v", err)
			continue
		}
		if *kind != "" && rec.Kind != *kind {
			continue
		}
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		recs = append(recs, rec)
		byKind[rec.Kind]++
		if rec.Kind != outbox.KindSkip {
			volume[rec.Kind] += rec.Amount
		}
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("read journal: %v", err)
	}

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	fmt.Printf("%d entries in %s\n", len(recs), *path)
	for _, k := range kinds {
		if k == outbox.KindSkip {
			fmt.Printf("  %-12s %d\n", k, byKind[k])
			continue
		}
		fmt.Printf("  %-12s %d (amount total %.4f)\n", k, byKind[k], volume[k])
	}

	if *tail > 0 && len(recs) > 0 {
		fmt.Println("\nmost recent:")
		start := len(recs) - *tail
		if start < 0 {
			start = 0
		}
		for _, rec := range recs[start:] {
			what := rec.Symbol
			if what == "" {
				what = rec.Asset
			}
			fmt.Printf("  %s  %-10s %-9s %-6s %10.4f  %s\n",
				rec.Timestamp.Format(time.RFC3339), rec.Kind, rec.Account, what, rec.Amount, rec.Reason)
		}
	}
}
