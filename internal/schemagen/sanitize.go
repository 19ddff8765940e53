package schemagen

import "regexp"

var invalidKeyChar = regexp.MustCompile(`[^A-Za-z0-9_.\-]`)
var leadingDotOrDash = regexp.MustCompile(`^[.\-]+`)
var runsOfUnderscore = regexp.MustCompile(`_+`)

const maxKeyLength = 64

// Sanitize exposes the key sanitization rule to other components (the
// invocation translator looks params up by the same keys Generate produced).
func Sanitize(name string) string {
	return sanitize(name)
}

// sanitize maps an arbitrary parameter or property name onto the key
// alphabet the tool protocol requires. It is idempotent: sanitizing an
// already-sanitized key returns it unchanged.
func sanitize(name string) string {
	s := invalidKeyChar.ReplaceAllString(name, "_")
	s = leadingDotOrDash.ReplaceAllString(s, "")
	s = runsOfUnderscore.ReplaceAllString(s, "_")
	if len(s) > maxKeyLength {
		s = s[:maxKeyLength]
	}
	if s == "" {
		return "param"
	}
	return s
}
