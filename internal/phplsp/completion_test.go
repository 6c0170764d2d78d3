package phplsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCompletionContext_MemberAccess(t *testing.T) {
	ctx := DetectCompletionContext("$repo->fin", nil, nil)
	assert.Equal(t, CtxMemberAccess, ctx.Kind)
	assert.Equal(t, "fin", ctx.Prefix)
	assert.Equal(t, "$repo", ctx.ObjectExpr)
}

func TestDetectCompletionContext_StaticAccess(t *testing.T) {
	// A prefix right after "::" with no `$` (method/constant-style access);
	// isIdentifierPrefix rejects `$`, so "Counter::$tot" instead falls
	// through to the variable-dollar check below.
	ctx := DetectCompletionContext("Counter::cre", nil, nil)
	assert.Equal(t, CtxStaticAccess, ctx.Kind)
	assert.Equal(t, "cre", ctx.Prefix)
	assert.Equal(t, "Counter", ctx.ObjectExpr)
}

func TestDetectCompletionContext_StaticPropertyDollarFallsThroughToVariable(t *testing.T) {
	ctx := DetectCompletionContext("Counter::$tot", nil, nil)
	assert.Equal(t, CtxVariable, ctx.Kind)
	assert.Equal(t, "tot", ctx.Prefix)
}

func TestDetectCompletionContext_Variable(t *testing.T) {
	ctx := DetectCompletionContext("echo $na", nil, nil)
	assert.Equal(t, CtxVariable, ctx.Kind)
	assert.Equal(t, "na", ctx.Prefix)
}

func TestDetectCompletionContext_Namespace(t *testing.T) {
	ctx := DetectCompletionContext(`new App\Doma`, nil, nil)
	assert.Equal(t, CtxNamespace, ctx.Kind)
	assert.Equal(t, `App\Doma`, ctx.Prefix)
}

func TestDetectCompletionContext_Free(t *testing.T) {
	ctx := DetectCompletionContext("fun", nil, nil)
	assert.Equal(t, CtxFree, ctx.Kind)
	assert.Equal(t, "fun", ctx.Prefix)
}

func TestDetectCompletionContext_None(t *testing.T) {
	ctx := DetectCompletionContext("", nil, nil)
	assert.Equal(t, CtxNone, ctx.Kind)
}

func TestGenerateCompletionItems_MemberAccess_ExcludesStaticsByDefault(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI: "file:///a.php",
		Symbols: []SymbolInfo{
			classSymbol(`App\Repo`, "file:///a.php", nil, nil),
			{Name: "find", FQN: `App\Repo::find`, Kind: KindMethod, URI: "file:///a.php", ParentFQN: `App\Repo`},
			{Name: "instance", FQN: `App\Repo::instance`, Kind: KindMethod, URI: "file:///a.php", ParentFQN: `App\Repo`, Modifiers: Modifiers{Static: true}},
		},
	})

	ctx := CompletionContext{Kind: CtxMemberAccess, Prefix: "", ObjectExpr: "$this", ClassFQN: `App\Repo`}
	items := GenerateCompletionItems(ctx, idx, NewResolver(idx), &FileSymbols{}, `App\Repo`, nil)

	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "find")
	assert.NotContains(t, labels, "instance")
}

func TestGenerateCompletionItems_StaticAccess_IncludesStatics(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI: "file:///a.php",
		Symbols: []SymbolInfo{
			classSymbol(`App\Counter`, "file:///a.php", nil, nil),
			{Name: "total", FQN: `App\Counter::$total`, Kind: KindProperty, URI: "file:///a.php", ParentFQN: `App\Counter`, Modifiers: Modifiers{Static: true}},
		},
	})

	ctx := CompletionContext{Kind: CtxStaticAccess, Prefix: "", ObjectExpr: "Counter", ClassFQN: `App\Counter`}
	items := GenerateCompletionItems(ctx, idx, NewResolver(idx), &FileSymbols{}, "", nil)
	require.Len(t, items, 1)
	assert.Equal(t, "total", items[0].Label)
}

func TestGenerateCompletionItems_Variable_FiltersByPrefixAndOffersThis(t *testing.T) {
	localVars := []ParamInfo{{Name: "name"}, {Name: "age"}}
	ctx := CompletionContext{Kind: CtxVariable, Prefix: "na"}
	items := GenerateCompletionItems(ctx, nil, nil, &FileSymbols{}, `App\Foo`, localVars)

	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "name")
	assert.NotContains(t, labels, "age")
}

func TestGenerateCompletionItems_Variable_ThisOfferedOnlyWithEnclosingClass(t *testing.T) {
	ctx := CompletionContext{Kind: CtxVariable, Prefix: "th"}
	items := GenerateCompletionItems(ctx, nil, nil, &FileSymbols{}, "", nil)
	assert.Empty(t, items)

	items = GenerateCompletionItems(ctx, nil, nil, &FileSymbols{}, `App\Foo`, nil)
	require.Len(t, items, 1)
	assert.Equal(t, "this", items[0].Label)
}

func TestGenerateCompletionItems_Free_IncludesKeywordsAndIndexSymbols(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI:     "file:///a.php",
		Symbols: []SymbolInfo{{Name: "fetchAll", FQN: `App\fetchAll`, Kind: KindFunction, URI: "file:///a.php"}},
	})
	ctx := CompletionContext{Kind: CtxFree, Prefix: "f"}
	items := GenerateCompletionItems(ctx, idx, nil, &FileSymbols{}, "", nil)

	var hasKeyword, hasFunc bool
	for _, it := range items {
		if it.Label == "fn" && it.Kind == CIKindKeyword {
			hasKeyword = true
		}
		if it.Label == "fetchAll" && it.Kind == CIKindFunction {
			hasFunc = true
		}
	}
	assert.True(t, hasKeyword)
	assert.True(t, hasFunc)
}

func TestResolveCompletionItem_Method(t *testing.T) {
	idx := NewWorkspaceIndex()
	idx.UpdateFile("file:///a.php", &FileSymbols{
		URI: "file:///a.php",
		Symbols: []SymbolInfo{
			classSymbol(`App\Repo`, "file:///a.php", nil, nil),
			{
				Name: "find", FQN: `App\Repo::find`, Kind: KindMethod, URI: "file:///a.php", ParentFQN: `App\Repo`,
				Signature: &Signature{Params: []ParamInfo{{Name: "id"}}},
				Doc:       &PhpDoc{Summary: "Finds by id."},
			},
		},
	})

	detail, doc := ResolveCompletionItem(idx, CIKindMethod, `App\Repo::find`)
	assert.Contains(t, detail, "find(")
	assert.Equal(t, "Finds by id.", doc)
}

func TestResolveCompletionItem_UnknownReturnsEmpty(t *testing.T) {
	detail, doc := ResolveCompletionItem(NewWorkspaceIndex(), CIKindClass, `App\Nope`)
	assert.Equal(t, "", detail)
	assert.Equal(t, "", doc)
}
