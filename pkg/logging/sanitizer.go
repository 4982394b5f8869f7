package logging

import (
	"regexp"
	"strings"
)

// RedactedText is the replacement text for sensitive data
const RedactedText = "[REDACTED]"

var (
	// Matches password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches user:pass@host in sqlserver:// and postgres:// URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s?]+`)

	// Connection property keys whose values are credentials
	secretKeyFragments = []string{"password", "passwd", "pwd", "secret", "token", "apikey", "api_key", "private_key", "credential"}
)

// SanitizeConnectionString removes credentials from a connection string or URL.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError renders err for logging with any embedded credentials removed.
// Driver errors from a failed connect often echo the DSN back.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeConnectionString(err.Error())
}

// IsSecretKey reports whether a connection property key names a credential.
func IsSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, fragment := range secretKeyFragments {
		if strings.Contains(k, fragment) {
			return true
		}
	}
	return false
}

// RedactValue returns value, or RedactedText when key names a credential.
func RedactValue(key, value string) string {
	if IsSecretKey(key) {
		return RedactedText
	}
	return value
}

// RedactProperties returns a copy of props safe to log.
func RedactProperties(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = RedactValue(k, v)
	}
	return out
}
