package phplsp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classSymbol(fqn, uri string, extends []string, implements []string) SymbolInfo {
	return SymbolInfo{
		Name:       fqn[strings.LastIndex(fqn, `\`)+1:],
		FQN:        fqn,
		Kind:       KindClass,
		URI:        uri,
		Extends:    extends,
		Implements: implements,
	}
}

func memberSymbol(owner, name, uri string, kind PhpSymbolKind) SymbolInfo {
	return SymbolInfo{
		Name:      name,
		FQN:       owner + "::" + name,
		Kind:      kind,
		URI:       uri,
		ParentFQN: owner,
	}
}

func TestWorkspaceIndex_UpdateFileAndResolve(t *testing.T) {
	idx := NewWorkspaceIndex()
	fs := &FileSymbols{
		URI: "file:///a.php",
		Symbols: []SymbolInfo{
			classSymbol(`App\User`, "file:///a.php", nil, nil),
			memberSymbol(`App\User`, "name", "file:///a.php", KindProperty),
		},
	}
	idx.UpdateFile("file:///a.php", fs)

	sym := idx.ResolveFQN(`App\User`)
	require.NotNil(t, sym)
	assert.Equal(t, "User", sym.Name)

	member := idx.ResolveMember(`App\User`, "name")
	require.NotNil(t, member)
	assert.Equal(t, KindProperty, member.Kind)
}

func TestWorkspaceIndex_UpdateFile_RemovesStaleEntries(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI:     "file:///a.php",
		Symbols: []SymbolInfo{classSymbol(`App\Old`, "file:///a.php", nil, nil)},
	})
	require.NotNil(t, idx.ResolveFQN(`App\Old`))

	// Re-indexing the same URI with a different symbol set must drop the
	// old one (spec §4.4's "a file that lost a class no longer advertises it").
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI:     "file:///a.php",
		Symbols: []SymbolInfo{classSymbol(`App\New`, "file:///a.php", nil, nil)},
	})
	assert.Nil(t, idx.ResolveFQN(`App\Old`))
	assert.NotNil(t, idx.ResolveFQN(`App\New`))
}

func TestWorkspaceIndex_ResolveMember_WalksInheritanceChain(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///base.php", &FileSymbols{
		URI: "file:///base.php",
		Symbols: []SymbolInfo{
			classSymbol(`App\Base`, "file:///base.php", nil, nil),
			memberSymbol(`App\Base`, "save", "file:///base.php", KindMethod),
		},
	})
	idx.UpdateFile("file:///child.php", &FileSymbols{
		URI: "file:///child.php",
		Symbols: []SymbolInfo{
			classSymbol(`App\Child`, "file:///child.php", []string{`App\Base`}, nil),
		},
	})

	member := idx.ResolveMember(`App\Child`, "save")
	require.NotNil(t, member)
	assert.Equal(t, `App\Base`, member.ParentFQN)
}

func TestWorkspaceIndex_ResolveMember_CycleGuard(t *testing.T) {
	idx := NewWorkspaceIndex()
	// A extends B, B extends A: a malformed/circular hierarchy must not
	// hang resolution (spec §8 "member resolution never loops").
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI:     "file:///a.php",
		Symbols: []SymbolInfo{classSymbol(`App\A`, "file:///a.php", []string{`App\B`}, nil)},
	})
	idx.UpdateFile("file:///b.php", &FileSymbols{
		URI:     "file:///b.php",
		Symbols: []SymbolInfo{classSymbol(`App\B`, "file:///b.php", []string{`App\A`}, nil)},
	})

	assert.Nil(t, idx.ResolveMember(`App\A`, "nonexistent"))
}

func TestWorkspaceIndex_Search(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI: "file:///a.php",
		Symbols: []SymbolInfo{
			classSymbol(`App\UserRepository`, "file:///a.php", nil, nil),
			classSymbol(`App\OrderRepository`, "file:///a.php", nil, nil),
		},
	})

	results := idx.Search("repository")
	assert.Len(t, results, 2)

	results = idx.Search("User")
	require.Len(t, results, 1)
	assert.Equal(t, `App\UserRepository`, results[0].FQN)
}

func TestWorkspaceIndex_RemoveFile(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI:     "file:///a.php",
		Symbols: []SymbolInfo{classSymbol(`App\Gone`, "file:///a.php", nil, nil)},
	})
	idx.RemoveFile("file:///a.php")
	assert.Nil(t, idx.ResolveFQN(`App\Gone`))
	assert.Nil(t, idx.FileDigest("file:///a.php"))
}
