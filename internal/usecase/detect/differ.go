// Package detect compares the records scraped in this run against the ones
// persisted by the previous run and reports what changed.
package detect

import (
	"post-alert/internal/domain/entity"
)

// Linker builds the public permalink for a record of a source.
type Linker func(sourceID string, r entity.Record) string

// PermalinkLinker returns a Linker rooted at base (entity.DefaultPermalinkBase when empty).
func PermalinkLinker(base string) Linker {
	return func(sourceID string, r entity.Record) string {
		return entity.Permalink(base, sourceID, r)
	}
}

// Diff returns the changes of current relative to previous for one source.
//
// A record whose id is absent from previous is NEW; a record whose id is present
// with a different title is TITLE_CHANGED; identical records are skipped.
// Records only in previous produce nothing. The output follows current order.
// A nil linker falls back to the default permalink base.
func Diff(source entity.Source, current, previous []entity.Record, linker Linker) []entity.Change {
	if linker == nil {
		linker = PermalinkLinker("")
	}

	prevTitles := make(map[string]string, len(previous))
	for _, r := range previous {
		prevTitles[r.ID] = r.Title
	}

	var changes []entity.Change
	for _, r := range current {
		prevTitle, known := prevTitles[r.ID]
		switch {
		case !known:
			changes = append(changes, newChange(source, r, entity.ChangeNew, "", linker))
		case prevTitle != r.Title:
			changes = append(changes, newChange(source, r, entity.ChangeTitleChanged, prevTitle, linker))
		}
	}
	return changes
}

func newChange(source entity.Source, r entity.Record, kind entity.ChangeKind, prevTitle string, linker Linker) entity.Change {
	return entity.Change{
		SourceID:      source.ID,
		DisplayName:   source.Name(),
		Record:        r,
		Kind:          kind,
		PreviousTitle: prevTitle,
		Link:          linker(source.ID, r),
	}
}
