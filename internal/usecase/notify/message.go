package notify

import (
	"fmt"
	"strings"

	"post-alert/internal/domain/entity"
)

// FormatMessage renders the alert text for one change. The text always
// carries the kind, display name, title and permalink.
func FormatMessage(change entity.Change) string {
	name := change.DisplayName
	if name == "" {
		name = change.SourceID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n%s\n", change.Kind, name, change.Record.Title)
	if change.Kind == entity.ChangeTitleChanged && change.PreviousTitle != "" {
		fmt.Fprintf(&b, "(was: %s)\n", change.PreviousTitle)
	}
	b.WriteString(change.Link)
	return b.String()
}
