package sanitize

import (
	"net/url"
	"regexp"
	"strings"
)

type SecretPattern struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// SecretPatterns is a list of compiled regular expressions and their corresponding replacements for detecting secrets.
var SecretPatterns = []SecretPattern{
	{
		// Redact value in 'Authorization: Bearer <token>' or 'Authorization: token <token>'
		Pattern:     regexp.MustCompile(`(?i)(Authorization:\s*(?:Bearer|token)\s+)\S+`),
		Replacement: `${1}[REDACTED]`,
	},
	{
		// Redact common key formats like 'api-key: value' or 'password = "value"'
		Pattern:     regexp.MustCompile(`(?i)((?:api-key|api_token|token|secret|password|key)(?:[\s=:]*['"]?))([a-zA-Z0-9_.-]{20,})(['"]?)`),
		Replacement: `${1}[REDACTED]${3}`,
	},
	{
		// DigitalOcean personal access and OAuth tokens
		Pattern:     regexp.MustCompile(`do[opr]_v1_[a-f0-9]{64}`),
		Replacement: "[REDACTED]",
	},
	{
		Pattern:     regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`),
		Replacement: "[REDACTED]",
	},
	{
		Pattern:     regexp.MustCompile(`ghs_[a-zA-Z0-9]{36}`),
		Replacement: "[REDACTED]",
	},
	{
		// Slack incoming webhook paths carry the secret
		Pattern:     regexp.MustCompile(`(hooks\.slack\.com/services/)[A-Za-z0-9/_-]+`),
		Replacement: `${1}[REDACTED]`,
	},
	{
		// Redact JWTs
		Pattern:     regexp.MustCompile(`ey[J-Za-z0-9-_=]+\.[J-Za-z0-9-_=]+\.[J-Za-z0-9-_.+/=]*`),
		Replacement: "[REDACTED]",
	},
}

// Text redacts secrets from free-form text such as action log lines and
// error messages.
func Text(s string) string {
	fields := strings.Fields(s)
	for _, f := range fields {
		if u, err := url.Parse(f); err == nil && u.User != nil {
			if _, isSet := u.User.Password(); isSet {
				u.User = url.UserPassword(u.User.Username(), "[REDACTED]")
				s = strings.Replace(s, f, u.String(), 1)
			}
		}
	}

	for _, p := range SecretPatterns {
		s = p.Pattern.ReplaceAllString(s, p.Replacement)
	}
	return s
}

// Lines applies Text to every line.
func Lines(lines []string) []string {
	sanitized := make([]string, len(lines))
	for i, line := range lines {
		sanitized[i] = Text(line)
	}
	return sanitized
}
