package phplsp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// findPos returns the 0-based line/col of needle's first occurrence in src,
// pointing at a byte inside it (so ResolveAt's point lookup lands on it).
func findPos(t *testing.T, src, needle string) (int, int) {
	t.Helper()
	idx := strings.Index(src, needle)
	require.GreaterOrEqual(t, idx, 0, "needle %q not found", needle)
	line := strings.Count(src[:idx], "\n")
	lastNL := strings.LastIndex(src[:idx], "\n")
	col := idx - lastNL - 1
	return line, col
}

func TestResolveClassName(t *testing.T) {
	uses := []UseStatement{{FQN: `App\Contracts\Identifiable`, Kind: UseClass}}

	assert.Equal(t, "self", ResolveClassName("self", `App\Domain`, nil))
	assert.Equal(t, `App\Other\Thing`, ResolveClassName(`\App\Other\Thing`, `App\Domain`, nil))
	assert.Equal(t, `App\Contracts\Identifiable`, ResolveClassName("Identifiable", `App\Domain`, uses))
	assert.Equal(t, `App\Contracts\Identifiable\Sub\Thing`, ResolveClassName(`Identifiable\Sub\Thing`, `App\Domain`, uses))
	assert.Equal(t, `App\Domain\Local`, ResolveClassName("Local", `App\Domain`, uses))
}

func TestResolveAt_MethodCallOnThis(t *testing.T) {
	src := `<?php
namespace App;

class Repo
{
    public function find(int $id): ?User
    {
        return $this->lookup($id);
    }
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///repo.php")

	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///repo.php", fs)
	r := NewResolver(idx)

	line, col := findPos(t, src, "lookup")
	sym := r.ResolveAt(p.Tree(), content, line, col, fs, `App\Repo`)
	require.NotNil(t, sym)
	assert.Equal(t, RefMethodCall, sym.RefKind)
	assert.Equal(t, `App\Repo::lookup`, sym.FQN)
}

func TestResolveAt_StaticPropertyAccess(t *testing.T) {
	src := `<?php
namespace App;

class Counter
{
    public static int $total = 0;
}

function bump(): void
{
    Counter::$total;
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///counter.php")

	line, col := findPos(t, src, "$total;")
	r := NewResolver(NewWorkspaceIndex())
	sym := r.ResolveAt(p.Tree(), content, line, col, fs, "")
	require.NotNil(t, sym)
	assert.Equal(t, RefStaticPropertyAccess, sym.RefKind)
	assert.Equal(t, `App\Counter::$total`, sym.FQN)
}

func TestResolveAt_ClassConstantAccess(t *testing.T) {
	src := `<?php
namespace App;

class Status
{
    const ACTIVE = 1;
}

function check(): void
{
    Status::ACTIVE;
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///status.php")

	line, col := findPos(t, src, "ACTIVE;")
	r := NewResolver(NewWorkspaceIndex())
	sym := r.ResolveAt(p.Tree(), content, line, col, fs, "")
	require.NotNil(t, sym)
	assert.Equal(t, RefClassConstant, sym.RefKind)
	assert.Equal(t, `App\Status::ACTIVE`, sym.FQN)
}

func TestResolveAt_FunctionCall(t *testing.T) {
	src := `<?php
namespace App;

use App\Helpers\retry;

function use_it(): void
{
    retry();
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///use_it.php")

	line, col := findPos(t, src, "retry();")
	r := NewResolver(NewWorkspaceIndex())
	sym := r.ResolveAt(p.Tree(), content, line, col, fs, "")
	require.NotNil(t, sym)
	assert.Equal(t, RefFunctionCall, sym.RefKind)
}

func TestResolveAt_Variable(t *testing.T) {
	src := `<?php
function greet(string $name): void
{
    echo $name;
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///greet.php")

	line, col := findPos(t, src, "$name;")
	r := NewResolver(NewWorkspaceIndex())
	sym := r.ResolveAt(p.Tree(), content, line, col, fs, "")
	require.NotNil(t, sym)
	assert.Equal(t, RefVariable, sym.RefKind)
	assert.Equal(t, "name", sym.Name)
}

func TestLocalVariableDefinition_Parameter(t *testing.T) {
	src := `<?php
function greet(string $name): void
{
    echo $name;
}
`
	p := parseSource(t, src)
	content := []byte(src)
	root := p.Tree().RootNode()

	line, col := findPos(t, src, "$name;")
	point := sitter.Point{Row: uint(line), Column: uint(col)}
	useNode := root.NamedDescendantForPointRange(point, point)
	def := LocalVariableDefinition(useNode, content)
	require.NotNil(t, def)
	assert.Equal(t, "$name", nodeText(def, content))
}

func TestLocalVariableDefinition_Assignment(t *testing.T) {
	src := `<?php
function run(): void
{
    $total = 0;
    $total = $total + 1;
    echo $total;
}
`
	p := parseSource(t, src)
	content := []byte(src)
	root := p.Tree().RootNode()

	line, col := findPos(t, src, "$total;")
	point := sitter.Point{Row: uint(line), Column: uint(col)}
	useNode := root.NamedDescendantForPointRange(point, point)
	def := LocalVariableDefinition(useNode, content)
	require.NotNil(t, def)
	// Nearest binding strictly before the cursor is the second assignment.
	defLine, _ := findPos(t, src, "$total = $total + 1")
	assert.Equal(t, uint(defLine), def.Range().StartPoint.Row)
}

func TestEnclosingClassFQN(t *testing.T) {
	src := `<?php
namespace App\Domain;

class Account
{
    public function balance(): int
    {
        return 0;
    }
}
`
	p := parseSource(t, src)
	content := []byte(src)
	root := p.Tree().RootNode()

	line, col := findPos(t, src, "return 0;")
	point := sitter.Point{Row: uint(line), Column: uint(col)}
	node := root.NamedDescendantForPointRange(point, point)
	assert.Equal(t, `App\Domain\Account`, EnclosingClassFQN(node, content, `App\Domain`))
}

func TestCollectLocalVariables(t *testing.T) {
	src := `<?php
function compute(int $a, int $b): int
{
    $sum = $a + $b;
    return $sum;
}
`
	p := parseSource(t, src)
	content := []byte(src)
	root := p.Tree().RootNode()

	line, col := findPos(t, src, "return $sum;")
	point := sitter.Point{Row: uint(line), Column: uint(col)}
	node := root.NamedDescendantForPointRange(point, point)

	vars := CollectLocalVariables(node, content)
	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.Name)
	}
	assert.Contains(t, names, "a")
	assert.Contains(t, names, "b")
	assert.Contains(t, names, "sum")
}
