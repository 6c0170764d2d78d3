package phplsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhpDoc_SummaryAndParams(t *testing.T) {
	raw := `/**
 * Looks up a user by id.
 *
 * @param int $id The user id.
 * @param string $role
 * @return \App\User|null
 * @throws \App\NotFoundException
 */`

	doc := ParsePhpDoc(raw)

	assert.Equal(t, "Looks up a user by id.", doc.Summary)
	require.Len(t, doc.Params, 2)
	assert.Equal(t, PhpDocParam{Type: "int", Name: "id", Description: "The user id."}, doc.Params[0])
	assert.Equal(t, "string", doc.Params[1].Type)
	assert.Equal(t, "role", doc.Params[1].Name)
	assert.Equal(t, `\App\User|null`, doc.ReturnType)
	assert.Equal(t, []string{`\App\NotFoundException`}, doc.Throws)
}

func TestParsePhpDoc_Var(t *testing.T) {
	doc := ParsePhpDoc("/** @var Collection<Item> $items the backing store */")
	assert.Equal(t, "Collection<Item>", doc.VarType)
	assert.Equal(t, "items", doc.VarName)
}

func TestParsePhpDoc_Deprecated(t *testing.T) {
	doc := ParsePhpDoc(`/**
 * @deprecated use newMethod() instead
 */`)
	assert.True(t, doc.HasDeprecated)
	assert.Equal(t, "use newMethod() instead", doc.Deprecated)
}

func TestParsePhpDoc_DeprecatedWithNoMessage(t *testing.T) {
	doc := ParsePhpDoc("/** @deprecated */")
	assert.True(t, doc.HasDeprecated)
	assert.Equal(t, "", doc.Deprecated)
}

func TestParsePhpDoc_PropertyTags(t *testing.T) {
	doc := ParsePhpDoc(`/**
 * @property int $id
 * @property-read string $name the display name
 * @property-write bool $active
 */`)
	require.Len(t, doc.Properties, 3)
	assert.Equal(t, "id", doc.Properties[0].Name)
	assert.False(t, doc.Properties[0].ReadOnly)
	assert.False(t, doc.Properties[0].WriteOnly)

	assert.Equal(t, "name", doc.Properties[1].Name)
	assert.True(t, doc.Properties[1].ReadOnly)
	assert.Equal(t, "the display name", doc.Properties[1].Description)

	assert.True(t, doc.Properties[2].WriteOnly)
}

func TestParsePhpDoc_MethodTag(t *testing.T) {
	doc := ParsePhpDoc(`/**
 * @method static self create(array $attrs)
 * @method int count()
 */`)
	require.Len(t, doc.Methods, 2)
	assert.True(t, doc.Methods[0].Static)
	assert.Equal(t, "self", doc.Methods[0].ReturnType)
	assert.Equal(t, "create", doc.Methods[0].Name)

	assert.False(t, doc.Methods[1].Static)
	assert.Equal(t, "int", doc.Methods[1].ReturnType)
	assert.Equal(t, "count", doc.Methods[1].Name)
}

func TestParsePhpDoc_EmptyComment(t *testing.T) {
	doc := ParsePhpDoc("/** */")
	assert.Equal(t, "", doc.Summary)
	assert.Empty(t, doc.Params)
}
