package logger

import "strings"

// Values with these prefixes are partially masked. Signed session tokens
// start with the base64 of `{"alg":`.
var sensitiveValuePrefixes = []string{
	"eyJ",
	"Bearer ",
}

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"cookie",
	"credential",
	"authorization",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactArgs returns a copy of the key/value list with sensitive string
// values masked. Odd trailing elements are kept as-is.
func redactArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}
	out := make([]any, len(args))
	copy(out, args)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if s, ok := out[i+1].(string); ok {
			out[i+1] = redactValue(key, s)
		}
	}
	return out
}

// redactValue masks a value by prefix first, then by key name.
func redactValue(key, value string) string {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return maskValue(value, prefix)
		}
	}
	if value != "" && IsSensitiveKey(key) {
		return redactedValue
	}
	return value
}

// maskValue partially masks a sensitive value.
// Format: prefix + first 3 chars + "..." + last 3 chars
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactString masks a value that looks like a session token.
func RedactString(value string) string {
	return redactValue("", value)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value appears to be sensitive.
func IsSensitiveValue(value string) bool {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
