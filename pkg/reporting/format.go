/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: format.go
Description: Supported report output formats.
*/

package reporting

import (
	"fmt"
	"strings"
)

// Format is a report output format
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Formats returns every supported format
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatCSV, FormatHTML, FormatPDF}
}

// ParseFormat returns the format with the given name, case-insensitive
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case "txt":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	}
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %q", name)
}

// Extension returns the file extension for the format
func (f Format) Extension() string {
	if f == FormatText {
		return ".txt"
	}
	return "." + string(f)
}

// Binary reports whether the output should not be written to a terminal
func (f Format) Binary() bool {
	return f == FormatPDF
}
