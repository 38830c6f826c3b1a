/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatters for the G-code analyzer. Provides readable console
output with optional colors, sorted structured fields and analysis event prefixes.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CustomFormatter provides compact structured console output
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.format(entry, ""), nil
}

func (f *CustomFormatter) format(entry *logrus.Entry, prefix string) []byte {
	var out strings.Builder

	if f.Timestamp {
		f.write(&out, 36, entry.Time.Format("2006-01-02 15:04:05.000")) // Cyan
	}

	f.write(&out, f.getLevelColor(entry.Level), strings.ToUpper(entry.Level.String()))

	if prefix != "" {
		f.write(&out, 35, "["+prefix+"]") // Magenta
	}

	if f.Caller && entry.HasCaller() {
		f.write(&out, 33, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line)) // Yellow
	}

	out.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		out.WriteString(" ")
		out.WriteString(f.formatFields(entry.Data))
	}

	out.WriteString("\n")
	return []byte(out.String())
}

func (f *CustomFormatter) write(out *strings.Builder, color int, s string) {
	if f.Colors {
		fmt.Fprintf(out, "\033[%dm%s\033[0m ", color, s)
		return
	}
	out.WriteString(s)
	out.WriteString(" ")
}

// getLevelColor returns the ANSI color code for a log level
func (f *CustomFormatter) getLevelColor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel:
		return 37 // White
	case logrus.InfoLevel:
		return 32 // Green
	case logrus.WarnLevel:
		return 33 // Yellow
	case logrus.ErrorLevel:
		return 31 // Red
	case logrus.FatalLevel, logrus.PanicLevel:
		return 35 // Magenta
	default:
		return 37
	}
}

// formatFields renders fields in key order so output is stable
func (f *CustomFormatter) formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := formatValue(key, fields[key])
		if f.Colors {
			parts = append(parts, fmt.Sprintf("\033[34m%s\033[0m=\033[32m%s\033[0m", key, value))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", key, value))
		}
	}
	return strings.Join(parts, " ")
}

// formatValue formats a field value appropriately
func formatValue(key string, value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.Round(time.Microsecond).String()
	case time.Time:
		return v.Format("15:04:05.000")
	case float64:
		switch key {
		case "time_s":
			return fmt.Sprintf("%.1fs", v)
		case "volume_mm3":
			return fmt.Sprintf("%.2fmm³", v)
		}
		return fmt.Sprintf("%.4g", v)
	case string:
		if len(v) > 60 {
			return v[:60] + "..."
		}
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AnalyzerFormatter adds an event prefix derived from the message
type AnalyzerFormatter struct {
	CustomFormatter
}

// Format formats analyzer log entries with an event prefix
func (f *AnalyzerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.format(entry, eventPrefix(entry.Message)), nil
}

// eventPrefix returns a prefix based on the log message
func eventPrefix(message string) string {
	switch {
	case strings.Contains(message, "parsed"), strings.Contains(message, "interpreted"):
		return "PARSE"
	case strings.Contains(message, "Layer"):
		return "LAYER"
	case strings.Contains(message, "pattern"), strings.Contains(message, "Pattern"):
		return "PATTERN"
	case strings.Contains(message, "Suggestion"):
		return "SUGGEST"
	case strings.Contains(message, "Analysis"):
		return "SUMMARY"
	case strings.Contains(message, "Watch"):
		return "WATCH"
	default:
		return ""
	}
}
