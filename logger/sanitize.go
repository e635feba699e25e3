package logger

import (
	"strings"

	"go.uber.org/zap"
)

// controlCharReplacer escapes characters that let caller-supplied strings
// forge extra lines in console output (CWE-117).
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Sanitize escapes newlines, carriage returns and tabs.
func Sanitize(s string) string {
	return controlCharReplacer.Replace(s)
}

// String is zap.String with the value sanitized. Use it for anything that
// originated from a request (paths, methods, nonces, key ids).
func String(key, value string) zap.Field {
	return zap.String(key, Sanitize(value))
}
