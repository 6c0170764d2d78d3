package lsp

import (
	"testing"

	"github.com/hightemp/php-lsp/internal/lsp/protocol"
	"github.com/hightemp/php-lsp/internal/phplsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

func TestSplitOwnerName(t *testing.T) {
	owner, name, ok := splitOwnerName(`App\Repo::find`)
	require.True(t, ok)
	assert.Equal(t, `App\Repo`, owner)
	assert.Equal(t, "find", name)

	owner, name, ok = splitOwnerName(`App\Counter::$total`)
	require.True(t, ok)
	assert.Equal(t, `App\Counter`, owner)
	assert.Equal(t, "total", name)

	_, _, ok = splitOwnerName("NoSeparator")
	assert.False(t, ok)
}

func TestSymbolKindForRef(t *testing.T) {
	cases := []struct {
		in   phplsp.RefKind
		want phplsp.PhpSymbolKind
		ok   bool
	}{
		{phplsp.RefClassName, phplsp.KindClass, true},
		{phplsp.RefFunctionCall, phplsp.KindFunction, true},
		{phplsp.RefMethodCall, phplsp.KindMethod, true},
		{phplsp.RefPropertyAccess, phplsp.KindProperty, true},
		{phplsp.RefStaticPropertyAccess, phplsp.KindProperty, true},
		{phplsp.RefClassConstant, phplsp.KindClassConstant, true},
		{phplsp.RefVariable, 0, false},
		{phplsp.RefUnknown, 0, false},
	}
	for _, c := range cases {
		got, ok := symbolKindForRef(c.in)
		assert.Equal(t, c.ok, ok)
		if c.ok {
			assert.Equal(t, c.want, got)
		}
	}
}

func TestSymbolKindToProtocol(t *testing.T) {
	assert.Equal(t, protocol.SymbolKindClass, symbolKindToProtocol(phplsp.KindClass))
	assert.Equal(t, protocol.SymbolKindMethod, symbolKindToProtocol(phplsp.KindMethod))
	assert.Equal(t, protocol.SymbolKindConstant, symbolKindToProtocol(phplsp.KindClassConstant))
	assert.Equal(t, protocol.SymbolKindConstant, symbolKindToProtocol(phplsp.KindGlobalConstant))
	assert.Equal(t, protocol.SymbolKindEnumMember, symbolKindToProtocol(phplsp.KindEnumCase))
}

func TestCompletionKindToProtocol_RoundTrip(t *testing.T) {
	kinds := []phplsp.CompletionItemKind{
		phplsp.CIKindClass, phplsp.CIKindInterface, phplsp.CIKindMethod,
		phplsp.CIKindProperty, phplsp.CIKindConstant, phplsp.CIKindVariable,
		phplsp.CIKindFunction, phplsp.CIKindKeyword, phplsp.CIKindEnumMember,
	}
	for _, k := range kinds {
		protoKind := completionKindToProtocol(k)
		assert.Equal(t, k, protocolKindToCompletion(int(protoKind)))
	}
}

func TestRangeToProtocol(t *testing.T) {
	r := phplsp.Range{StartLine: 1, StartCol: 2, EndLine: 3, EndCol: 4}
	got := rangeToProtocol(r)
	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, got.Start)
	assert.Equal(t, protocol.Position{Line: 3, Character: 4}, got.End)
}

func TestRenameReplacementText_PropertyDeclarationCarriesSigil(t *testing.T) {
	src := `<?php
class Account
{
    public int $balance = 0;
}
`
	content := []byte(src)
	p := phplsp.NewFileParser()
	defer p.Close()
	p.ParseFull(content)
	fs := phplsp.ExtractFileSymbols(p.Tree().RootNode(), content, "file:///account.php")

	var prop *phplsp.SymbolInfo
	for i := range fs.Symbols {
		if fs.Symbols[i].Name == "balance" {
			prop = &fs.Symbols[i]
		}
	}
	require.NotNil(t, prop)
	assert.Equal(t, "$newName", renameReplacementText(content, prop.SelectionRange, "newName"))
}

func TestRenameReplacementText_InstanceAccessHasNoSigil(t *testing.T) {
	src := `<?php
class Account
{
    public int $balance = 0;

    public function show(): void
    {
        echo $this->balance;
    }
}
`
	content := []byte(src)
	p := phplsp.NewFileParser()
	defer p.Close()
	p.ParseFull(content)
	root := p.Tree().RootNode()

	line, col := findSubstring(src, "balance;")
	point := sitter.Point{Row: uint(line), Column: uint(col)}
	node := root.NamedDescendantForPointRange(point, point)
	r := phplsp.NodeRange(node)

	assert.Equal(t, "newName", renameReplacementText(content, r, "newName"))
}

func TestLocalVariableOccurrences_FindsParameterAndUsages(t *testing.T) {
	src := `<?php
function greet(string $name): void
{
    echo $name;
    echo $name;
}
`
	content := []byte(src)
	p := phplsp.NewFileParser()
	defer p.Close()
	p.ParseFull(content)
	root := p.Tree().RootNode()

	line, col := findSubstring(src, "$name;")
	point := sitter.Point{Row: uint(line), Column: uint(col)}
	node := root.NamedDescendantForPointRange(point, point)

	occurrences := localVariableOccurrences(node, content, "name")
	// parameter + two usages
	assert.Len(t, occurrences, 3)
}

func findSubstring(src, needle string) (int, int) {
	idx := -1
	for i := 0; i+len(needle) <= len(src); i++ {
		if src[i:i+len(needle)] == needle {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0
	}
	line := 0
	lastNL := -1
	for i := 0; i < idx; i++ {
		if src[i] == '\n' {
			line++
			lastNL = i
		}
	}
	return line, idx - lastNL - 1
}
