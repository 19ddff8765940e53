package main

import (
	"encoding/json"
	"strings"
)

// splitToolCall splits "toolName {...json...}" into its name and raw
// argument text, tolerating a call with no arguments at all.
func splitToolCall(rest string) (name, argsJSON string) {
	rest = strings.TrimSpace(rest)
	idx := strings.IndexByte(rest, ' ')
	if idx < 0 {
		return rest, ""
	}
	return rest[:idx], strings.TrimSpace(rest[idx+1:])
}

// decodeCallArgs parses the REPL's trailing JSON object into a params map,
// treating an empty string as "no arguments".
func decodeCallArgs(argsJSON string) (map[string]interface{}, error) {
	if argsJSON == "" {
		return map[string]interface{}{}, nil
	}
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(argsJSON), &params); err != nil {
		return nil, err
	}
	return params, nil
}
