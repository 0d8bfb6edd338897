package pygen

import "github.com/cbi-systems/protoc-gen-cbiproto/internal/descriptor"

// docstring renders a descriptor.Comment as a Python docstring: a
// single-line comment becomes a one-line triple-quoted string, a
// multi-line one is wrapped onto its own lines. An empty comment
// renders to the empty string, meaning "write nothing".
func docstring(c descriptor.Comment) string {
	if c.Empty() {
		return ""
	}
	lines := splitLines(c.Leading)
	if len(lines) == 1 {
		return `"""` + lines[0] + `"""`
	}
	return "\"\"\"\n" + c.Leading + "\n\"\"\""
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// fieldComment renders a field's trailing docstring: it sits on its own
// line(s) right after the field assignment, so it is prefixed and
// suffixed with a newline when non-empty (matching
// FieldCompiler.render's "\n{comment}\n" wrapping).
func fieldComment(c descriptor.Comment) string {
	d := docstring(c)
	if d == "" {
		return ""
	}
	return "\n" + d + "\n"
}
