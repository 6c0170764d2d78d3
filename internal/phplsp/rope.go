package phplsp

import "sort"

// Rope is a line-indexed byte buffer. It is not a balanced-tree rope in the
// classic sense (the example pack carries none of those); it is the
// line-offset-cache shape the teacher's own document handling hand-rolls
// (internal/lsp/document.go's position math), generalized here into its own
// type so FileParser can convert LSP positions to byte offsets and back in
// O(log N) per spec §4.1, independent of tree-sitter itself.
type Rope struct {
	text       []byte
	lineStarts []int // byte offset of the first byte of each line; lineStarts[0] == 0
}

// NewRope builds a Rope over text.
func NewRope(text []byte) *Rope {
	r := &Rope{}
	r.Reset(text)
	return r
}

// Reset replaces the rope's entire contents, matching parse_full's "replace
// the rope, parse with no prior tree" contract (spec §4.1).
func (r *Rope) Reset(text []byte) {
	r.text = text
	r.lineStarts = computeLineStarts(text)
}

func computeLineStarts(text []byte) []int {
	starts := make([]int, 1, 16)
	starts[0] = 0
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Bytes returns the current full text.
func (r *Rope) Bytes() []byte { return r.text }

// Len is the byte length of the current text.
func (r *Rope) Len() int { return len(r.text) }

// PositionToByte converts a 0-based (line, byte-column) position to an
// absolute byte offset. Out-of-range inputs clamp rather than panic: a
// line past the last line maps to the buffer end, a negative line to 0, a
// column past the end of its line to that line's end, and a negative
// column to the line start.
func (r *Rope) PositionToByte(line, col int) int {
	if line < 0 {
		line, col = 0, 0
	}
	if line >= len(r.lineStarts) {
		return len(r.text)
	}
	lineStart := r.lineStarts[line]
	lineEnd := len(r.text)
	if line+1 < len(r.lineStarts) {
		lineEnd = r.lineStarts[line+1] - 1 // exclude the trailing \n
		if lineEnd < lineStart {
			lineEnd = lineStart
		}
	}
	offset := lineStart + col
	if col < 0 {
		offset = lineStart
	}
	if offset > lineEnd {
		offset = lineEnd
	}
	return offset
}

// ByteToPosition converts an absolute byte offset to a 0-based
// (line, byte-column) position via binary search over line starts.
func (r *Rope) ByteToPosition(byteOffset int) (line, col int) {
	if byteOffset < 0 {
		byteOffset = 0
	}
	if byteOffset > len(r.text) {
		byteOffset = len(r.text)
	}
	// Largest lineStarts[i] <= byteOffset.
	i := sort.Search(len(r.lineStarts), func(i int) bool {
		return r.lineStarts[i] > byteOffset
	}) - 1
	if i < 0 {
		i = 0
	}
	return i, byteOffset - r.lineStarts[i]
}
