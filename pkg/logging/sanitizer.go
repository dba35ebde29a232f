package logging

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxQueryLogLength is the maximum number of characters of SQL written to a log line.
	MaxQueryLogLength = 200
	// RedactedText replaces credentials.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host in URL-style DSNs
	urlCredentialsPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeDSN removes credentials from a connection string so it can be logged.
// Both key=value DSNs (PostgreSQL, SQL Server) and URL DSNs are handled.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	return urlCredentialsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
}

// SanitizeError returns the error text with any embedded DSN credentials removed.
// Driver errors sometimes echo the connection string.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeDSN(err.Error())
}

// SanitizeQuery prepares SQL text for a single log line: whitespace runs
// collapse to one space and long queries are truncated on a rune boundary.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	oneLine := strings.TrimSpace(whitespacePattern.ReplaceAllString(query, " "))
	return TruncateString(oneLine, MaxQueryLogLength)
}

// TruncateString shortens s to at most maxLen runes, adding an ellipsis when cut.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
