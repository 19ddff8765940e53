// Package toolregistry holds the two process-scoped stores of component E:
// the dynamic tool registry itself and the managed-API schema cache, plus
// the tool-naming and description-composition rules that feed them.
package toolregistry

import (
	"strings"
	"unicode"
)

const maxToolNameLength = 64

// buildToolName composes the external, bit-exact tool name for a generated
// operation: "<apiName>_<snake_case_operationId>".
func buildToolName(apiName, operationID string) string {
	name := apiName + "_" + toSnakeCase(operationID)
	if len(name) > maxToolNameLength {
		name = name[:maxToolNameLength]
	}
	return name
}

// toSnakeCase splits on lower->upper boundaries, on the tail of a run of
// consecutive capitals that precedes a capital+lower pair ("HTMLBody" splits
// as "html_body"), and on digit->upper boundaries (so "V4Calendar" splits as
// "v4_calendar", not "v_4_calendar" or "v4calendar"), then lowercases the
// result.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(r):
				b.WriteByte('_')
			case unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				b.WriteByte('_')
			case unicode.IsDigit(prev) && unicode.IsUpper(r):
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// buildDescription composes the external tool description:
// "[<displayName>] <summary-or-description>", with a not-authenticated
// suffix appended when the connection isn't Connected.
func buildDescription(displayName, summaryOrDescription, status string) string {
	desc := "[" + displayName + "] " + summaryOrDescription
	if status != "Connected" {
		desc += " ⚠️ Connection not authenticated"
	}
	return desc
}
