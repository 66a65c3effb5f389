// Package format implements the indented text emitter used by all code
// generators. Output is deterministic: identical writes yield identical
// bytes.
package format

import (
	"fmt"
	"io"
	"strings"
)

// IndentWidth is the number of spaces per indentation level.
const IndentWidth = 4

// Formatter writes indented text to an underlying sink. Indentation is
// inserted before the first byte of every line that is not a bare newline.
// Write errors latch; later writes become no-ops and Err reports the first
// failure.
type Formatter struct {
	w         io.Writer
	depth     int
	atLineTop bool
	err       error
}

// New returns a Formatter writing to w.
func New(w io.Writer) *Formatter {
	return &Formatter{w: w, atLineTop: true}
}

// Indent increases the indentation depth by n levels.
func (f *Formatter) Indent(n int) { f.depth += n }

// Unindent decreases the indentation depth by n levels.
func (f *Formatter) Unindent(n int) {
	f.depth -= n
	if f.depth < 0 {
		f.depth = 0
	}
}

// Block runs fn one indentation level deeper.
func (f *Formatter) Block(fn func()) *Formatter {
	f.Indent(1)
	fn()
	f.Unindent(1)
	return f
}

// Write emits s, indenting each line start.
func (f *Formatter) Write(s string) *Formatter {
	if f.err != nil || s == "" {
		return f
	}
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			f.writeSegment(s)
			return f
		}
		f.writeSegment(s[:i])
		f.writeRaw("\n")
		f.atLineTop = true
		s = s[i+1:]
		if s == "" {
			return f
		}
	}
}

// Printf formats and writes.
func (f *Formatter) Printf(format string, args ...interface{}) *Formatter {
	return f.Write(fmt.Sprintf(format, args...))
}

// Println writes s followed by a newline.
func (f *Formatter) Println(s string) *Formatter {
	return f.Write(s + "\n")
}

// Endl writes a newline.
func (f *Formatter) Endl() *Formatter {
	return f.Write("\n")
}

// Err returns the first write error, if any.
func (f *Formatter) Err() error { return f.err }

func (f *Formatter) writeSegment(s string) {
	if s == "" {
		return
	}
	if f.atLineTop {
		f.writeRaw(strings.Repeat(" ", f.depth*IndentWidth))
		f.atLineTop = false
	}
	f.writeRaw(s)
}

func (f *Formatter) writeRaw(s string) {
	if f.err != nil {
		return
	}
	if _, err := io.WriteString(f.w, s); err != nil {
		f.err = err
	}
}
