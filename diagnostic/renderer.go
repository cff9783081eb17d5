// Copyright © 2025 The MON authors

package diagnostic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf16"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// Renderer formats diagnostics as annotated source snippets.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// SourceReader reads source file contents. If nil, os.ReadFile is used.
	SourceReader func(string) ([]byte, error)

	// Explain appends the code's description as a help note.
	Explain bool

	// Width is the column at which help text wraps. Zero means 80.
	Width int
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	p := choosePalette(r.Color, fileFromWriter(w))
	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	r.writeHeader(ew, d, p)
	r.writeSpan(ew, d, p)

	for _, rel := range d.Related {
		ew.printf("   %s=%s note: %s:%s: %s\n", p.boldCyan, p.reset,
			displayPath(rel.Location.URI), rel.Location.Range.Start, rel.Message)
	}
	if r.Explain && d.Code.Description() != "" {
		ew.printf("   %s=%s help:\n", p.boldCyan, p.reset)
		ew.print(r.wrap(d.Code.Description(), 7))
		ew.print("\n")
	}

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, d); err != nil {
			return err
		}
	}
	return nil
}

// wrap word-wraps text to the renderer width and indents every line by n
// spaces.
func (r *Renderer) wrap(text string, n uint) string {
	width := r.Width
	if width <= 0 {
		width = 80
	}
	if width-int(n) > 20 {
		width -= int(n)
	}
	return indent.String(wordwrap.String(text, width), n)
}

// errWriter wraps a writer and captures the first error, short-circuiting
// subsequent writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

func (ew *errWriter) print(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (r *Renderer) writeHeader(ew *errWriter, d Diagnostic, p palette) {
	var sevColor string
	switch d.Severity {
	case SeverityError:
		sevColor = p.boldRed
	case SeverityInfo:
		sevColor = p.boldCyan
	default:
		sevColor = p.yellow
	}
	suffix := ""
	if d.Suppressed {
		suffix = " (suppressed)"
	}
	ew.printf("%s%s%s[%s]%s: %s%s%s%s\n",
		sevColor, p.bold, d.Severity, d.Code, p.reset,
		p.bold, d.Message, suffix, p.reset)
}

func (r *Renderer) writeSpan(ew *errWriter, d Diagnostic, p palette) {
	if d.File == "" {
		return
	}
	path := displayPath(d.File)
	line := int(d.Range.Start.Line) + 1
	col := int(d.Range.Start.Character) + 1
	ew.printf("  %s-->%s %s:%d:%d\n", p.boldBlue, p.reset, path, line, col)

	source, ok := r.readSourceLine(d.File, int(d.Range.Start.Line))
	if !ok {
		ew.printf("   %s|%s\n", p.boldBlue, p.reset)
		return
	}

	lineStr := fmt.Sprintf("%d", line)
	pad := strings.Repeat(" ", len(lineStr))

	ew.printf(" %s%s |%s\n", p.boldBlue, pad, p.reset)
	displaySource := strings.ReplaceAll(source, "\t", "    ")
	ew.printf(" %s%s |%s  %s\n", p.boldBlue, lineStr, p.reset, displaySource)

	// Range characters are UTF-16 units; the underline is measured in
	// display columns. A multi-line range is underlined to the end of its
	// first line.
	startCol := displayColumn(source, int(d.Range.Start.Character))
	endCol := displayWidth(source)
	if d.Range.End.Line == d.Range.Start.Line {
		endCol = displayColumn(source, int(d.Range.End.Character))
	}
	underLen := endCol - startCol
	if underLen < 1 {
		underLen = 1
	}
	underColor := p.boldRed
	if d.Severity != SeverityError {
		underColor = p.yellow
	}
	ew.printf(" %s%s |%s  %s%s%s%s\n", p.boldBlue, pad, p.reset,
		strings.Repeat(" ", startCol), underColor, strings.Repeat("^", underLen), p.reset)
	ew.printf(" %s%s |%s\n", p.boldBlue, pad, p.reset)
}

// readSourceLine returns the zero-based line of file. Only '\n' ends a line.
func (r *Renderer) readSourceLine(file string, line int) (string, bool) {
	if file == "" {
		return "", false
	}
	reader := r.SourceReader
	if reader == nil {
		reader = func(name string) ([]byte, error) {
			return os.ReadFile(name) //nolint:gosec // reads user-specified source files for display
		}
	}
	data, err := reader(displayPath(file))
	if err != nil {
		return "", false
	}
	lines := strings.Split(string(data), "\n")
	if line < 0 || line >= len(lines) {
		return "", false
	}
	return strings.TrimSuffix(lines[line], "\r"), true
}

// displayColumn converts a UTF-16 offset within source to a display column,
// expanding tabs to 4 spaces. Offsets past the end clamp to the line width.
func displayColumn(source string, units int) int {
	col, seen := 0, 0
	for _, ch := range source {
		if seen >= units {
			break
		}
		seen += len(utf16.Encode([]rune{ch}))
		if ch == '\t' {
			col += 4
		} else {
			col++
		}
	}
	return col
}

// displayWidth returns the display width of a string, expanding tabs to 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// displayPath strips the file:// scheme from document URIs.
func displayPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// fileFromWriter attempts to extract an *os.File from a writer for terminal
// detection. Returns nil if the writer is not backed by a file.
func fileFromWriter(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
