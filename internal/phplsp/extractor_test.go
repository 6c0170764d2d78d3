package phplsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, src string) *FileParser {
	t.Helper()
	p := NewFileParser()
	p.ParseFull([]byte(src))
	t.Cleanup(p.Close)
	return p
}

func TestExtractFileSymbols_ClassWithMembers(t *testing.T) {
	src := `<?php
namespace App\Domain;

use App\Contracts\Identifiable;

/**
 * Represents a user of the system.
 */
class User implements Identifiable
{
    public const STATUS_ACTIVE = 1;

    private string $name;

    /**
     * @param string $name
     */
    public function __construct(string $name)
    {
        $this->name = $name;
    }

    public function getName(): string
    {
        return $this->name;
    }
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///user.php")

	assert.Equal(t, `App\Domain`, fs.Namespace)
	require.Len(t, fs.UseStatements, 1)
	assert.Equal(t, `App\Contracts\Identifiable`, fs.UseStatements[0].FQN)

	var class *SymbolInfo
	var ctor, getName, name, status *SymbolInfo
	for i := range fs.Symbols {
		sym := &fs.Symbols[i]
		switch {
		case sym.Kind == KindClass:
			class = sym
		case sym.Name == "__construct":
			ctor = sym
		case sym.Name == "getName":
			getName = sym
		case sym.Name == "name" && sym.Kind == KindProperty:
			name = sym
		case sym.Name == "STATUS_ACTIVE":
			status = sym
		}
	}

	require.NotNil(t, class)
	assert.Equal(t, `App\Domain\User`, class.FQN)
	assert.Contains(t, class.Implements, `App\Contracts\Identifiable`)
	require.NotNil(t, class.Doc)
	assert.Contains(t, class.Doc.Summary, "Represents a user")

	require.NotNil(t, ctor)
	assert.Equal(t, `App\Domain\User`, ctor.ParentFQN)
	require.NotNil(t, ctor.Signature)
	require.Len(t, ctor.Signature.Params, 1)
	assert.Equal(t, "name", ctor.Signature.Params[0].Name)

	require.NotNil(t, getName)
	assert.Equal(t, Public, getName.Visibility)

	require.NotNil(t, name)
	assert.Equal(t, Private, name.Visibility)

	require.NotNil(t, status)
	assert.Equal(t, KindClassConstant, status.Kind)
}

func TestExtractFileSymbols_FunctionsAndGlobalConstants(t *testing.T) {
	src := `<?php
namespace App;

const MAX_RETRIES = 3;

function retry(callable $fn): void
{
    $fn();
}
`
	p := parseSource(t, src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), []byte(src), "file:///funcs.php")

	var fn, constant *SymbolInfo
	for i := range fs.Symbols {
		sym := &fs.Symbols[i]
		if sym.Kind == KindFunction {
			fn = sym
		}
		if sym.Kind == KindGlobalConstant {
			constant = sym
		}
	}
	require.NotNil(t, fn)
	assert.Equal(t, `App\retry`, fn.FQN)
	require.NotNil(t, constant)
	assert.Equal(t, `App\MAX_RETRIES`, constant.FQN)
}

func TestExtractFileSymbols_SyntaxError(t *testing.T) {
	src := `<?php
class Broken {
    public function foo( {
`
	p := parseSource(t, src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), []byte(src), "file:///broken.php")
	assert.True(t, fs.HasSyntaxError)
}

func TestExtractFileSymbols_MultipleBracedNamespaces(t *testing.T) {
	src := `<?php
namespace App\One {
    class Foo {}
}
namespace App\Two {
    class Bar {}
}
`
	p := parseSource(t, src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), []byte(src), "file:///ns.php")

	var foundFoo, foundBar bool
	for _, sym := range fs.Symbols {
		if sym.FQN == `App\One\Foo` {
			foundFoo = true
		}
		if sym.FQN == `App\Two\Bar` {
			foundBar = true
		}
	}
	assert.True(t, foundFoo, "expected App\\One\\Foo to resolve against its own declaration-point namespace")
	assert.True(t, foundBar, "expected App\\Two\\Bar to resolve against its own declaration-point namespace")
}
