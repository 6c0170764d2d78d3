package phplsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRope_PositionToByte(t *testing.T) {
	text := []byte("line0\nline1\nline2")
	r := NewRope(text)

	tests := []struct {
		name       string
		line, col  int
		wantOffset int
	}{
		{"start of buffer", 0, 0, 0},
		{"mid first line", 0, 3, 3},
		{"start of second line", 1, 0, 6},
		{"mid third line", 2, 4, 16},
		{"col past end of line clamps", 0, 100, 5},
		{"line past end clamps to buffer end", 99, 0, len(text)},
		{"negative line clamps to start", -1, 5, 0},
		{"negative col clamps to line start", 1, -3, 6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantOffset, r.PositionToByte(tc.line, tc.col))
		})
	}
}

func TestRope_ByteToPosition(t *testing.T) {
	text := []byte("line0\nline1\nline2")
	r := NewRope(text)

	line, col := r.ByteToPosition(0)
	assert.Equal(t, 0, line)
	assert.Equal(t, 0, col)

	line, col = r.ByteToPosition(6)
	assert.Equal(t, 1, line)
	assert.Equal(t, 0, col)

	line, col = r.ByteToPosition(15)
	assert.Equal(t, 2, line)
	assert.Equal(t, 3, col)

	// Never panics: offsets beyond the buffer clamp to the last position.
	line, col = r.ByteToPosition(10_000)
	assert.Equal(t, 2, line)
	assert.Equal(t, 5, col)

	line, col = r.ByteToPosition(-5)
	assert.Equal(t, 0, line)
	assert.Equal(t, 0, col)
}

func TestRope_PositionByteRoundTrip(t *testing.T) {
	text := []byte("<?php\nclass Foo {\n    public $bar;\n}\n")
	r := NewRope(text)

	for _, offset := range []int{0, 6, 20, len(text) - 1} {
		line, col := r.ByteToPosition(offset)
		require.Equal(t, offset, r.PositionToByte(line, col))
	}
}

func TestRope_Reset(t *testing.T) {
	r := NewRope([]byte("abc"))
	assert.Equal(t, 3, r.Len())

	r.Reset([]byte("a\nbb\nccc"))
	assert.Equal(t, 8, r.Len())
	line, col := r.ByteToPosition(7)
	assert.Equal(t, 2, line)
	assert.Equal(t, 2, col)
}
