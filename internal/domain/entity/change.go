package entity

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPermalinkBase is the host every post permalink is built on.
const DefaultPermalinkBase = "https://blog.naver.com"

// ChangeKind classifies a detected change.
type ChangeKind string

const (
	// ChangeNew marks a record id absent from the previous snapshot.
	ChangeNew ChangeKind = "NEW"
	// ChangeTitleChanged marks a known record id whose title differs.
	ChangeTitleChanged ChangeKind = "TITLE_CHANGED"
)

// Change is one notification-worthy difference for a source.
type Change struct {
	SourceID      string
	DisplayName   string
	Record        Record
	Kind          ChangeKind
	PreviousTitle string // set for ChangeTitleChanged only
	Link          string
}

// Permalink builds "<base>/<sourceID>/<post number>".
func Permalink(base, sourceID string, r Record) string {
	if base == "" {
		base = DefaultPermalinkBase
	}
	return strings.TrimRight(base, "/") + "/" + sourceID + "/" + r.PostNumber()
}

// Recipient is a delivery target on a named channel, e.g. telegram:123456.
type Recipient struct {
	Channel string
	ID      string
}

// ParseRecipient parses "channel:id". Only the first colon separates the
// two parts, so ids such as webhook URLs may contain colons.
func ParseRecipient(s string) (Recipient, error) {
	channel, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	channel = strings.ToLower(strings.TrimSpace(channel))
	id = strings.TrimSpace(id)
	if !ok || channel == "" || id == "" {
		return Recipient{}, fmt.Errorf("%w: recipient %q must look like channel:id", ErrInvalidInput, s)
	}
	return Recipient{Channel: channel, ID: id}, nil
}

// String returns the recipient in "channel:id" form.
func (r Recipient) String() string {
	return r.Channel + ":" + r.ID
}

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryResult reports what happened to one recipient for one change.
type DeliveryResult struct {
	Recipient Recipient
	Status    DeliveryStatus
	Err       error
	Duration  time.Duration
}
