package logging

import (
	"regexp"
)

var (
	// 順序重要: より具体的なパターンから適用する
	telegramTokenPattern = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	discordHookPattern   = regexp.MustCompile(`(/api/webhooks/[0-9]+/)[A-Za-z0-9_-]+`)
	slackHookPattern     = regexp.MustCompile(`(/services/)[A-Za-z0-9/]+`)

	// DSN 内のパスワード
	dbPasswordPattern = regexp.MustCompile(`://([^:/@]+):([^@]+)@`)
)

// SanitizeError returns err's message with bot tokens, webhook secrets and
// DSN passwords masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = telegramTokenPattern.ReplaceAllString(msg, "bot****")
	msg = discordHookPattern.ReplaceAllString(msg, "${1}****")
	msg = slackHookPattern.ReplaceAllString(msg, "${1}****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
