package protocol

import (
	"fmt"
	"strings"
)

// Response accumulates key:value lines for the success-shape body defined
// in spec §4.H: `OK\n<key>:<value>\n...\nEND\n`.
type Response struct {
	lines []string
}

// OK starts building a success response.
func OK() *Response { return &Response{} }

// Add appends one key:value line.
func (r *Response) Add(key, value string) *Response {
	r.lines = append(r.lines, key+":"+value)
	return r
}

// Addf appends one key:value line with a formatted value.
func (r *Response) Addf(key, format string, args ...any) *Response {
	return r.Add(key, fmt.Sprintf(format, args...))
}

// Bytes renders the full `OK\n...\nEND\n` body.
func (r *Response) Bytes() []byte {
	var b strings.Builder
	b.WriteString("OK\n")
	for _, l := range r.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("END\n")
	return []byte(b.String())
}

// Error renders the error-shape response `ERROR:<free text>\n`.
func Error(msg string) []byte {
	return []byte("ERROR:" + msg + "\n")
}
