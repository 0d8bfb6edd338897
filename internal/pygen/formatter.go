// Package pygen renders a resolved descriptor.Set into the Python
// source of a generated module: dataclasses for messages, classes for
// enums, and a client/server pair of classes per service.
package pygen

import "strings"

// Formatter accumulates indented Python source line by line, mirroring
// the plugin's own Formatter: a block bumps the indent level for its
// duration and restores it on exit.
type Formatter struct {
	indentLevel int
	indentStr   string
	buf         strings.Builder
}

// NewFormatter returns a Formatter starting at indent level zero using
// four-space indentation.
func NewFormatter() *Formatter {
	return &Formatter{indentStr: "    "}
}

func (f *Formatter) String() string { return f.buf.String() }

// Write appends s verbatim, with no indentation or trailing newline.
func (f *Formatter) Write(s string) *Formatter {
	f.buf.WriteString(s)
	return f
}

func (f *Formatter) indent() *Formatter {
	return f.Write(strings.Repeat(f.indentStr, f.indentLevel))
}

func (f *Formatter) newline() *Formatter { return f.Write("\n") }

// WriteLine writes one indented line terminated by a newline.
func (f *Formatter) WriteLine(s string) *Formatter {
	return f.indent().Write(s).newline()
}

// WriteLines splits s on "\n" and writes each resulting line through
// WriteLine, so a multi-line docstring comment gets every line indented
// to the current block, not just its first.
func (f *Formatter) WriteLines(s string) *Formatter {
	for _, line := range strings.Split(s, "\n") {
		f.WriteLine(line)
	}
	return f
}

// Block runs body with the indent level raised by one.
func (f *Formatter) Block(body func()) {
	f.indentLevel++
	body()
	f.indentLevel--
}

// BlockWithComment runs Block, first writing comment (if non-empty) as
// the block's leading docstring line(s).
func (f *Formatter) BlockWithComment(comment string, body func()) {
	f.Block(func() {
		if comment != "" {
			f.WriteLines(comment)
		}
		body()
	})
}
