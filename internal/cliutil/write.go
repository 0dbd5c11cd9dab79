// Package cliutil provides utilities for CLI operations.
package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats lists the accepted output formats.
var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

// Writef writes formatted output to the writer.
// If the write fails, it logs to stderr (useful for debugging).
func Writef(w io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "write error: %v\n", err)
	}
}

// ValidateFormat returns an error for unknown output formats.
func ValidateFormat(format string) error {
	for _, f := range ValidFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q (valid: %s)", format, strings.Join(ValidFormats, ", "))
}

// WriteStructured encodes v as indented JSON or YAML. FormatText falls back
// to JSON since structured values have no canonical text form.
func WriteStructured(w io.Writer, format string, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("cliutil: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, FormatText, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("cliutil: encode json: %w", err)
		}
		return nil
	default:
		return ValidateFormat(format)
	}
}

// WriteBody writes a raw response body. JSON bodies are re-encoded in the
// requested format; anything else is written verbatim.
func WriteBody(w io.Writer, format string, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		_, err = w.Write(body)
		if err == nil && body[len(body)-1] != '\n' {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
	return WriteStructured(w, format, v)
}
