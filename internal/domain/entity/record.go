package entity

import (
	"sort"
	"strings"
)

// RecordIDPrefix is the literal prefix every post id carries on a listing page.
const RecordIDPrefix = "post_"

// RawRecord is a post entry exactly as scraped from a listing page.
// Nothing about it is trusted until it passes ValidateRecords.
type RawRecord struct {
	ID    string
	Title string
}

// Record is a validated post entry.
// ID is the diff identity, Title is the mutable content compared between runs.
type Record struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PostNumber returns the numeric part of the record id ("post_123" -> "123").
func (r Record) PostNumber() string {
	return strings.TrimPrefix(r.ID, RecordIDPrefix)
}

// Snapshot holds the records last observed per source id.
// Record order inside a source is display-only.
type Snapshot map[string][]Record

// Clone returns a deep copy so callers can mutate the result freely.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, recs := range s {
		cp := make([]Record, len(recs))
		copy(cp, recs)
		out[id] = cp
	}
	return out
}

// SourceIDs returns the source ids present in the snapshot, sorted.
func (s Snapshot) SourceIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RecordCount returns the number of records across all sources.
func (s Snapshot) RecordCount() int {
	n := 0
	for _, recs := range s {
		n += len(recs)
	}
	return n
}

// DedupeRecords collapses records sharing an id.
// The first occurrence keeps its position and the last seen title wins.
func DedupeRecords(records []Record) []Record {
	if len(records) < 2 {
		return records
	}

	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i].Title = r.Title
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
