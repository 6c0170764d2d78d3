package phplsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindReferences_ClassDeclarationAndUsage(t *testing.T) {
	src := `<?php
namespace App;

class Widget
{
}

class Factory
{
    public function make(): Widget
    {
        return new Widget();
    }
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///widget.php")

	sites := FindReferences(p.Tree().RootNode(), content, "file:///widget.php", fs, `App\Widget`, KindClass)
	require.Len(t, sites, 3)

	var defCount int
	for _, s := range sites {
		if s.DefinitionSite {
			defCount++
		}
	}
	assert.Equal(t, 1, defCount, "exactly one declaration site expected")
}

func TestFindReferences_PropertyDeclarationVsAccess(t *testing.T) {
	src := `<?php
namespace App;

class Account
{
    public int $balance = 0;

    public function credit(int $amount): void
    {
        $this->balance += $amount;
    }
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///account.php")

	sites := FindReferences(p.Tree().RootNode(), content, "file:///account.php", fs, `App\Account::$balance`, KindProperty)
	require.Len(t, sites, 2)

	var declSite, useSite *ReferenceSite
	for i := range sites {
		if sites[i].DefinitionSite {
			declSite = &sites[i]
		} else {
			useSite = &sites[i]
		}
	}
	require.NotNil(t, declSite)
	require.NotNil(t, useSite)

	// Declaration site lands on the `variable_name` node (carries the `$`
	// sigil in-range); instance-access usage lands on a bare `name` field
	// with no sigil — this is the shape server.go's rename rule depends on.
	assert.Equal(t, "$balance", rangeText(content, declSite.Range))
	assert.Equal(t, "balance", rangeText(content, useSite.Range))
}

func TestFindReferences_StaticPropertyUsageCarriesSigil(t *testing.T) {
	src := `<?php
namespace App;

class Counter
{
    public static int $total = 0;
}

function bump(): void
{
    Counter::$total += 1;
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///counter.php")

	sites := FindReferences(p.Tree().RootNode(), content, "file:///counter.php", fs, `App\Counter::$total`, KindProperty)
	require.Len(t, sites, 2)

	for _, s := range sites {
		assert.Equal(t, "$total", rangeText(content, s.Range), "both declaration and static-access sites carry the sigil in-range")
	}
}

func TestFindReferences_MethodCallMatchesByTrailingName(t *testing.T) {
	src := `<?php
namespace App;

class Service
{
    public function run(): void
    {
    }
}

function call(Service $s): void
{
    $s->run();
}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///service.php")

	sites := FindReferences(p.Tree().RootNode(), content, "file:///service.php", fs, `App\Service::run`, KindMethod)
	require.Len(t, sites, 2)
}

func TestFindReferences_NoMatchReturnsEmpty(t *testing.T) {
	src := `<?php
class Foo {}
`
	p := parseSource(t, src)
	content := []byte(src)
	fs := ExtractFileSymbols(p.Tree().RootNode(), content, "file:///foo.php")

	sites := FindReferences(p.Tree().RootNode(), content, "file:///foo.php", fs, `App\Bar`, KindClass)
	assert.Empty(t, sites)
}

// rangeText slices the exact source text a Range spans, via the rope's
// position-to-byte conversion.
func rangeText(content []byte, r Range) string {
	rope := NewRope(content)
	start := rope.PositionToByte(r.StartLine, r.StartCol)
	end := rope.PositionToByte(r.EndLine, r.EndCol)
	return string(content[start:end])
}
