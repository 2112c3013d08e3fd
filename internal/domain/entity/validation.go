package entity

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs.
const maxURLLength = 2048

var recordIDPattern = regexp.MustCompile(`^post_[0-9]+$`)

// IsValidRecordID reports whether id is the literal "post_" followed by
// one or more ASCII digits and nothing else.
func IsValidRecordID(id string) bool {
	return recordIDPattern.MatchString(id)
}

// ValidateRecords keeps raw records with a well-formed id and a non-blank title.
// Titles are trimmed and survivors keep their relative order. It never fails;
// the number of dropped records is len(raw) - len(result).
func ValidateRecords(raw []RawRecord) []Record {
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		if !IsValidRecordID(r.ID) {
			continue
		}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		out = append(out, Record{ID: r.ID, Title: title})
	}
	return out
}

// ValidateURL validates the format and safety of a listing page URL.
// It checks that the URL is well-formed, uses HTTP/HTTPS scheme, and has a valid host.
// Hosts resolving to private addresses are rejected.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	// HTTPまたはHTTPSスキームのみ許可
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	// SSRF対策: プライベートIPアドレスをブロック
	ips, err := net.LookupIP(parsedURL.Hostname())
	if err == nil {
		for _, ip := range ips {
			if isPrivateIP(ip) {
				return &ValidationError{
					Field:   "url",
					Message: "url cannot point to private network",
				}
			}
		}
	}

	return nil
}

// isPrivateIP reports whether ip is loopback, link-local or in a private range.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate()
}
