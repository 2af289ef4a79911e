package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/spinql/internal/ir"
)

// marshalLibrary converts a library to JSON TEXT for storage.
// HTML escaping is disabled so URIs containing '&' or '<' round-trip as written.
func marshalLibrary(lib ir.Library) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(lib); err != nil {
		return "", fmt.Errorf("marshal library: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalLibrary parses a stored library body.
func unmarshalLibrary(data string) (ir.Library, error) {
	var lib ir.Library
	if err := json.Unmarshal([]byte(data), &lib); err != nil {
		return ir.Library{}, fmt.Errorf("unmarshal library: %w", err)
	}
	if lib.Functions == nil {
		lib.Functions = []ir.FunctionDecl{}
	}
	return lib, nil
}

// formatTime renders t as UTC RFC 3339 with nanoseconds, which sorts
// lexically in the same order as chronologically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse started_at %q: %w", s, err)
	}
	return t, nil
}

// functionKind is the value of functions.kind for decl.
func functionKind(decl ir.FunctionDecl) string {
	if decl.IsTemplate() {
		return "template"
	}
	return "expression"
}
