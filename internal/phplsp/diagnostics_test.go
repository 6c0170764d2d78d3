package phplsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diagnoseSource(t *testing.T, src string, extraFiles map[string]string) ([]Diagnostic, *FileSymbols) {
	t.Helper()
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///main.php")

	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///main.php", fs)
	for uri, extraSrc := range extraFiles {
		ep := NewFileParser()
		ep.ParseFull([]byte(extraSrc))
		t.Cleanup(ep.Close)
		efs := ExtractFileSymbols(ep.Tree().RootNode(), []byte(extraSrc), uri)
		idx.UpdateFile(uri, efs)
	}

	return DiagnoseFile(p.Tree(), content, fs, idx), fs
}

func TestDiagnoseFile_SyntaxError(t *testing.T) {
	src := `<?php
class Broken {
    public function foo( {
`
	diags, _ := diagnoseSource(t, src, nil)
	require.NotEmpty(t, diags)
	var found bool
	for _, d := range diags {
		if d.Code == CodeSyntaxError {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiagnoseFile_UnresolvedUse(t *testing.T) {
	src := `<?php
namespace App;

use App\Missing\Thing;
`
	diags, _ := diagnoseSource(t, src, nil)
	require.Len(t, diags, 1)
	assert.Equal(t, CodeUnresolvedUse, diags[0].Code)
}

func TestDiagnoseFile_UnresolvedUse_SkipsSingleSegmentAndBuiltins(t *testing.T) {
	src := `<?php
namespace App;

use SomeGlobalInterface;
`
	diags, _ := diagnoseSource(t, src, nil)
	assert.Empty(t, diags)
}

func TestDiagnoseFile_UnknownClassInInstantiation(t *testing.T) {
	src := `<?php
namespace App;

function make(): void
{
    new App\Missing\Widget();
}
`
	diags, _ := diagnoseSource(t, src, nil)
	var found bool
	for _, d := range diags {
		if d.Code == CodeUnknownClass {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiagnoseFile_KnownClassInInstantiation_NoDiagnostic(t *testing.T) {
	widget := `<?php
namespace App;

class Widget
{
}
`
	src := `<?php
namespace App;

function make(): void
{
    new Widget();
}
`
	diags, _ := diagnoseSource(t, src, map[string]string{"file:///widget.php": widget})
	for _, d := range diags {
		assert.NotEqual(t, CodeUnknownClass, d.Code)
	}
}

func TestDiagnoseFile_UnknownFunction(t *testing.T) {
	src := `<?php
namespace App;

function caller(): void
{
    App\Missing\helper();
}
`
	diags, _ := diagnoseSource(t, src, nil)
	var found bool
	for _, d := range diags {
		if d.Code == CodeUnknownFunction {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiagnoseFile_ArgumentCountMismatch_TooFew(t *testing.T) {
	src := `<?php
namespace App;

function needsTwo(int $a, int $b): void
{
}

function caller(): void
{
    needsTwo(1);
}
`
	diags, _ := diagnoseSource(t, src, nil)
	var found bool
	for _, d := range diags {
		if d.Code == CodeArgumentCountMismatch {
			found = true
			assert.Contains(t, d.Message, "too few")
		}
	}
	assert.True(t, found)
}

func TestDiagnoseFile_ArgumentCountMismatch_TooMany(t *testing.T) {
	src := `<?php
namespace App;

function needsOne(int $a): void
{
}

function caller(): void
{
    needsOne(1, 2, 3);
}
`
	diags, _ := diagnoseSource(t, src, nil)
	var found bool
	for _, d := range diags {
		if d.Code == CodeArgumentCountMismatch {
			found = true
			assert.Contains(t, d.Message, "too many")
		}
	}
	assert.True(t, found)
}

func TestDiagnoseFile_ArgumentCount_VariadicNeverFlagsTooMany(t *testing.T) {
	src := `<?php
namespace App;

function sink(int ...$nums): void
{
}

function caller(): void
{
    sink(1, 2, 3, 4, 5);
}
`
	diags, _ := diagnoseSource(t, src, nil)
	for _, d := range diags {
		assert.NotEqual(t, CodeArgumentCountMismatch, d.Code)
	}
}

func TestDiagnoseFile_SemanticChecksSuppressedOnSyntaxError(t *testing.T) {
	src := `<?php
namespace App;

use App\Missing\Thing;

function foo( {
`
	diags, _ := diagnoseSource(t, src, nil)
	for _, d := range diags {
		assert.Equal(t, CodeSyntaxError, d.Code, "unresolved-use/semantic checks must not run alongside a syntax error")
	}
}

func TestFormatDiagnosticCode(t *testing.T) {
	assert.Equal(t, "UnknownClass", FormatDiagnosticCode(CodeUnknownClass))
}
