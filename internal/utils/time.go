package utils

import "time"

// ISOLayout matches the millisecond UTC timestamps the backend expects
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in UTC with millisecond precision
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// TruncateRunes cuts s to at most n runes
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
