/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interpreter.go
Description: Command interpreter. Turns each logical line of a G-code stream into a
structured Command and advances the modal-state tracker. Malformed lines never abort
interpretation; they are recorded best-effort and counted against an optional budget.
*/

package gcode

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kleascm/gcode-analyzer/pkg/logging"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var (
	// tokenRe matches one <letter>[number] word; whitespace between letter and value is allowed
	tokenRe = regexp.MustCompile(`([A-Za-z])[ \t]*([-+]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+))?`)
	// extendedRe matches firmware macro style commands such as EXCLUDE_OBJECT_START NAME=part
	extendedRe = regexp.MustCompile(`^([A-Z][A-Z0-9_]*)(?:\s+(.*))?$`)
	// macroArgsRe matches KEY=value macro arguments; values may be double quoted
	macroArgsRe = regexp.MustCompile(`^(?:[A-Za-z_][A-Za-z0-9_]*=(?:"[^"]*"|\S*)(?:\s+|$))*$`)
	// familyRe matches a leading command letter followed by a number
	familyRe = regexp.MustCompile(`^[A-Za-z]\s*[-+.0-9]`)
)

// plainMacros are firmware commands without an underscore in their name
var plainMacros = map[string]bool{
	"PAUSE":   true,
	"RESUME":  true,
	"RESPOND": true,
	"RESTART": true,
	"STATUS":  true,
}

// stringArgCommands take free text instead of letter/number parameters
var stringArgCommands = map[int]bool{
	23:  true, // select SD file
	28:  true, // begin SD write
	30:  true, // delete SD file
	32:  true, // select and start SD file
	117: true, // display message
	118: true, // serial print
}

// Options configures the interpreter
type Options struct {
	MaxMalformedLines int `json:"max_malformed_lines" mapstructure:"max_malformed_lines"` // Malformed lines tolerated before stopping (0 = unlimited)
	MaxLineLength     int `json:"max_line_length" mapstructure:"max_line_length"`         // Longest accepted line in bytes
}

// DefaultOptions returns the interpreter defaults
func DefaultOptions() Options {
	return Options{
		MaxMalformedLines: 0,
		MaxLineLength:     1024 * 1024,
	}
}

// Validate checks the options for invalid values
func (o Options) Validate() error {
	if o.MaxMalformedLines < 0 {
		return fmt.Errorf("max_malformed_lines must not be negative")
	}
	if o.MaxLineLength < 256 {
		return fmt.Errorf("max_line_length must be at least 256 bytes")
	}
	return nil
}

// Program is the ordered result of interpreting one stream
type Program struct {
	Commands []Command   // Commands in source order
	Steps    []Step      // Resolved step for each command, same index as Commands
	Final    ModalState  // Modal state after the last consumed command
	Warnings []Warning   // Recoverable conditions found while interpreting
	Lines    int         // Source lines consumed
	Stopped  bool        // Interpretation ended early on the malformed line budget
	Duration time.Duration
}

// Interpreter turns G-code text into a Program. It holds no per-stream state and
// may be shared between goroutines.
type Interpreter struct {
	opts   Options
	logger logrus.FieldLogger
}

// NewInterpreter creates an interpreter. A nil logger discards output.
func NewInterpreter(opts Options, logger logrus.FieldLogger) *Interpreter {
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultOptions().MaxLineLength
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Interpreter{opts: opts, logger: logger}
}

// InterpretString interprets G-code held in memory
func (in *Interpreter) InterpretString(text string) (*Program, error) {
	return in.Interpret(strings.NewReader(text))
}

// Interpret reads the stream line by line. A read failure is fatal and wraps
// ErrStreamUnreadable. Exceeding the malformed line budget returns the partial
// Program together with a *BudgetError.
func (in *Interpreter) Interpret(r io.Reader) (*Program, error) {
	start := time.Now()
	reader := bufio.NewReaderSize(r, 64*1024)

	prog := &Program{}
	var state ModalState
	var lineErrs error
	malformed := 0

	for {
		text, tooLong, err := readLine(reader, in.opts.MaxLineLength)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: after line %d: %v", ErrStreamUnreadable, prog.Lines, err)
		}

		prog.Lines++
		var cmd Command
		var ok bool
		if tooLong {
			cmd, ok, err = oversized(text, prog.Lines, in.opts.MaxLineLength)
		} else {
			cmd, ok, err = ParseLine(text, prog.Lines)
		}
		if !ok {
			continue
		}

		if err != nil {
			malformed++
			lineErrs = multierr.Append(lineErrs, err)
			prog.Warnings = append(prog.Warnings, Warning{
				Kind:    WarnMalformedLine,
				Line:    cmd.LineNumber,
				Layer:   -1,
				Message: err.Error(),
			})
		} else if !cmd.IsSupported() {
			prog.Warnings = append(prog.Warnings, Warning{
				Kind:    WarnUnsupportedCommand,
				Line:    cmd.LineNumber,
				Layer:   -1,
				Message: fmt.Sprintf("unsupported command %q retained without state update", strings.TrimSpace(cmd.Raw)),
			})
		}

		next, step, warnings := Advance(state, cmd)
		state = next
		prog.Commands = append(prog.Commands, cmd)
		prog.Steps = append(prog.Steps, step)
		prog.Warnings = append(prog.Warnings, warnings...)

		if in.opts.MaxMalformedLines > 0 && malformed > in.opts.MaxMalformedLines {
			prog.Final = state
			prog.Stopped = true
			prog.Duration = time.Since(start)
			in.logger.WithFields(logrus.Fields{
				"line":      prog.Lines,
				"malformed": malformed,
				"budget":    in.opts.MaxMalformedLines,
			}).Warn("Malformed line budget exceeded, interpretation stopped")
			return prog, &BudgetError{Limit: in.opts.MaxMalformedLines, LastLine: prog.Lines, Lines: lineErrs}
		}
	}

	prog.Final = state
	prog.Duration = time.Since(start)

	in.logger.WithFields(logrus.Fields{
		"lines":     prog.Lines,
		"commands":  len(prog.Commands),
		"malformed": malformed,
		"warnings":  len(prog.Warnings),
		"duration":  prog.Duration,
	}).Debug("G-code interpreted")

	return prog, nil
}

// ParseLine parses one source line. It reports ok=false for blank lines. A
// malformed line yields a best-effort command with empty parameters and a non-nil
// error describing the problem.
func ParseLine(text string, lineNumber int) (Command, bool, error) {
	line := strings.TrimSpace(text)
	if line == "" {
		return Command{}, false, nil
	}

	if line[0] == ';' {
		return Command{
			Type:       TypeComment,
			Comment:    strings.TrimSpace(line[1:]),
			LineNumber: lineNumber,
			Raw:        text,
		}, true, nil
	}

	body, comment := line, ""
	if i := strings.IndexByte(line, ';'); i >= 0 {
		body, comment = strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
	}
	if i := strings.IndexByte(body, '*'); i >= 0 {
		body = strings.TrimSpace(body[:i])
	}

	cmd := Command{
		Comment:    comment,
		LineNumber: lineNumber,
		Raw:        text,
		Parameters: map[rune]float64{},
	}

	if body == "" {
		cmd.Type = TypeComment
		cmd.Parameters = nil
		return cmd, true, nil
	}

	if name, args, ok := macro(body); ok {
		// Firmware macro: retained verbatim without a command family
		cmd.Macro = name
		cmd.Argument = args
		cmd.Parameters = nil
		return cmd, true, nil
	}

	tokens, err := tokenize(body)
	if err != nil {
		return malformed(cmd, body, err)
	}

	// Skip an optional N line number
	if tokens[0].letter == 'N' {
		tokens = tokens[1:]
		if len(tokens) == 0 {
			return malformed(cmd, body, fmt.Errorf("line number without command"))
		}
	}

	head := tokens[0]
	if !head.hasValue {
		return malformed(cmd, body, fmt.Errorf("command %c has no code", head.letter))
	}
	code, err := strconv.Atoi(head.value)
	if err != nil || code < 0 {
		return malformed(cmd, body, fmt.Errorf("invalid command code %q", head.value))
	}
	cmd.Type = head.letter
	cmd.Code = code

	if cmd.Type == TypeM && stringArgCommands[code] {
		cmd.Argument = strings.TrimSpace(body[head.end:])
		return cmd, true, nil
	}

	for _, tok := range tokens[1:] {
		v := 0.0
		if tok.hasValue {
			v, err = strconv.ParseFloat(tok.value, 64)
			if err != nil {
				return malformed(cmd, body, fmt.Errorf("invalid value for %c: %q", tok.letter, tok.value))
			}
		}
		cmd.Parameters[tok.letter] = v
	}

	return cmd, true, nil
}

// macro recognizes Klipper style extended commands: an upper case name containing
// an underscore (or a known plain name) followed by KEY=value arguments
func macro(body string) (string, string, bool) {
	m := extendedRe.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	name, args := m[1], strings.TrimSpace(m[2])
	if !strings.Contains(name, "_") && !plainMacros[name] {
		return "", "", false
	}
	if !macroArgsRe.MatchString(args) {
		return "", "", false
	}
	return name, args, true
}

func malformed(cmd Command, body string, cause error) (Command, bool, error) {
	cmd.Malformed = true
	cmd.Parameters = map[rune]float64{}
	cmd.Code = 0
	if familyRe.MatchString(body) {
		cmd.Type = rune(strings.ToUpper(body)[0])
	}
	return cmd, true, fmt.Errorf("line %d: malformed %q: %w", cmd.LineNumber, body, cause)
}

// oversized records a line longer than the limit as malformed. Only its leading
// bytes are kept.
func oversized(head string, lineNumber, limit int) (Command, bool, error) {
	cmd := Command{
		LineNumber: lineNumber,
		Raw:        head,
		Malformed:  true,
		Parameters: map[rune]float64{},
	}
	return cmd, true, fmt.Errorf("line %d: longer than %d bytes", lineNumber, limit)
}

// readLine returns the next line without its terminator. A line longer than limit
// is consumed in full and reported with tooLong set; only its first 64 bytes are
// returned. io.EOF is returned once the stream is exhausted.
func readLine(r *bufio.Reader, limit int) (string, bool, error) {
	var buf []byte
	var head string
	tooLong, started := false, false
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if err == io.EOF && started {
				break
			}
			return "", false, err
		}
		started = true
		if !tooLong {
			if len(buf)+len(chunk) > limit {
				tooLong = true
				buf = append(buf, chunk...)
				head = string(buf[:min(len(buf), 64)])
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return head, true, nil
	}
	return string(buf), false, nil
}

type token struct {
	letter   rune
	value    string
	hasValue bool
	end      int
}

// tokenize splits a command body into letter/number words and rejects any
// non-whitespace text that is not part of a word.
func tokenize(body string) ([]token, error) {
	matches := tokenRe.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no command word")
	}

	tokens := make([]token, 0, len(matches))
	pos := 0
	for _, m := range matches {
		if gap := body[pos:m[0]]; strings.TrimSpace(gap) != "" {
			return nil, fmt.Errorf("unexpected text %q", gap)
		}
		tok := token{
			letter: rune(strings.ToUpper(body[m[2]:m[3]])[0]),
			end:    m[1],
		}
		if m[4] >= 0 {
			tok.value = body[m[4]:m[5]]
			tok.hasValue = true
		}
		tokens = append(tokens, tok)
		pos = m[1]
	}
	if rest := body[pos:]; strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("unexpected text %q", rest)
	}
	return tokens, nil
}
