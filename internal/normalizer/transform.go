package normalizer

import "bytes"

var (
	crlf = []byte("\r\n")
	lfcr = []byte("\n\r")
	lf   = []byte("\n")
)

// HasCR reports whether content contains a carriage-return byte.
func HasCR(content []byte) bool {
	return bytes.IndexByte(content, '\r') >= 0
}

// Transform collapses every CR+LF pair to LF, then every LF+CR pair to LF.
// Each substitution is a single left-to-right, non-overlapping pass over the
// output of the previous one. A CR that belongs to neither pair is kept.
func Transform(content []byte) []byte {
	out := bytes.ReplaceAll(content, crlf, lf)
	return bytes.ReplaceAll(out, lfcr, lf)
}

// countCR returns the number of carriage-return bytes left in content.
func countCR(content []byte) int {
	return bytes.Count(content, []byte{'\r'})
}
