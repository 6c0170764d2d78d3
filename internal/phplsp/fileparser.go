package phplsp

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

// NewPhpLanguage constructs the tree-sitter-php language handle shared by
// every parser in this package, matching the teacher's
// internal/indexer/treesitter.go construction.
func NewPhpLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_php.LanguagePHP())
}

// FileParser owns one file's rope + CST and mediates all edits, per
// SPEC_FULL.md C2. Grounded on other_examples/d91f645c (vimfony's
// Document.Update) for the actual tree.Edit/reparse-with-hint mechanics,
// since the teacher's own internal/lsp/document.go only ever full-reparses.
type FileParser struct {
	parser *sitter.Parser
	tree   *sitter.Tree
	rope   *Rope
}

// NewFileParser allocates a parser bound to the PHP grammar.
func NewFileParser() *FileParser {
	p := sitter.NewParser()
	if err := p.SetLanguage(NewPhpLanguage()); err != nil {
		panic(err) // grammar embedding failure is a build-time invariant, not a runtime error
	}
	return &FileParser{parser: p, rope: NewRope(nil)}
}

// ParseFull replaces the buffer and parses from scratch with no prior tree,
// per spec §4.1's parse_full contract.
func (f *FileParser) ParseFull(text []byte) {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
	f.rope.Reset(text)
	f.tree = f.parser.Parse(text, nil)
}

// ApplyEdit applies a ranged replacement expressed in 0-based
// (line, byte-column) coordinates and incrementally reparses, per spec
// §4.1's apply_edit contract: the CST is informed of byte/point deltas so
// it can reuse unchanged subtrees.
func (f *FileParser) ApplyEdit(startLine, startCol, endLine, endCol int, newText []byte) {
	if f.tree == nil {
		// No prior tree to hint from; behave as parse_full of the edited text.
		startByte := f.rope.PositionToByte(startLine, startCol)
		endByte := f.rope.PositionToByte(endLine, endCol)
		merged := spliceBytes(f.rope.Bytes(), startByte, endByte, newText)
		f.ParseFull(merged)
		return
	}

	startByte := f.rope.PositionToByte(startLine, startCol)
	oldEndByte := f.rope.PositionToByte(endLine, endCol)
	startPoint := sitter.Point{Row: uint(startLine), Column: uint(startCol)}
	oldEndPoint := sitter.Point{Row: uint(endLine), Column: uint(endCol)}

	merged := spliceBytes(f.rope.Bytes(), startByte, oldEndByte, newText)
	newEndByte := startByte + len(newText)
	newEndLine, newEndCol := byteDeltaPosition(startLine, startCol, newText)
	newEndPoint := sitter.Point{Row: uint(newEndLine), Column: uint(newEndCol)}

	edit := sitter.InputEdit{
		StartByte:      uint(startByte),
		OldEndByte:     uint(oldEndByte),
		NewEndByte:     uint(newEndByte),
		StartPosition:  startPoint,
		OldEndPosition: oldEndPoint,
		NewEndPosition: newEndPoint,
	}
	f.tree.Edit(&edit)
	f.rope.Reset(merged)

	newTree := f.parser.Parse(merged, f.tree)
	f.tree.Close()
	f.tree = newTree
}

// spliceBytes replaces text[start:end] with repl, returning a fresh slice.
func spliceBytes(text []byte, start, end int, repl []byte) []byte {
	out := make([]byte, 0, len(text)-(end-start)+len(repl))
	out = append(out, text[:start]...)
	out = append(out, repl...)
	out = append(out, text[end:]...)
	return out
}

// byteDeltaPosition computes the (line, col) reached after writing `text`
// starting at (line, col).
func byteDeltaPosition(line, col int, text []byte) (int, int) {
	for _, b := range text {
		if b == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return line, col
}

// Tree returns the current parse tree (may contain ERROR/MISSING nodes;
// tree-sitter parses never fail per spec §4.1).
func (f *FileParser) Tree() *sitter.Tree { return f.tree }

// Text returns the current full buffer contents.
func (f *FileParser) Text() []byte { return f.rope.Bytes() }

// Rope exposes the position<->byte mapper for callers outside this package
// (e.g. the orchestrator converting LSP positions).
func (f *FileParser) Rope() *Rope { return f.rope }

// NodeAt returns the deepest named node covering the given 0-based
// (line, byte-column) position, or nil if the file has no tree yet.
func (f *FileParser) NodeAt(line, col int) *sitter.Node {
	if f.tree == nil {
		return nil
	}
	root := f.tree.RootNode()
	if root == nil {
		return nil
	}
	point := sitter.Point{Row: uint(line), Column: uint(col)}
	return root.NamedDescendantForPointRange(point, point)
}

// Close releases the parser and tree.
func (f *FileParser) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
	f.parser.Close()
}
