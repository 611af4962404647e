package state

import "strings"

var sensitiveKeyParts = []string{"PASSWORD", "SECRET", "TOKEN", "KEY", "CREDENTIAL", "AUTH", "PRIVATE", "CERT", "PASSPHRASE"}

const redacted = "[REDACTED]"

// SanitizeEnv copies env with secret-looking values redacted, for records and reports.
func SanitizeEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
		upper := strings.ToUpper(k)
		for _, p := range sensitiveKeyParts {
			if strings.Contains(upper, p) {
				out[k] = redacted
				break
			}
		}
	}
	return out
}
