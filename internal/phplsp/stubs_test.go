package phplsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStubs_LoadsMarkedBuiltinSymbols(t *testing.T) {
	root := t.TempDir()
	coreDir := filepath.Join(root, "Core")
	require.NoError(t, os.MkdirAll(coreDir, 0755))

	stub := `<?php
class ArrayObject
{
    public function count(): int {}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(coreDir, "ArrayObject.php"), []byte(stub), 0644))
	// Non-.php files in the extension directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(coreDir, "README.txt"), []byte("n/a"), 0644))

	idx := NewWorkspaceIndex()
	loaded := LoadStubs(idx, root, []string{"Core"})
	assert.Equal(t, 1, loaded)

	sym := idx.ResolveFQN("ArrayObject")
	require.NotNil(t, sym)
	assert.True(t, sym.Modifiers.Builtin)

	member := idx.ResolveMember("ArrayObject", "count")
	require.NotNil(t, member)
	assert.True(t, member.Modifiers.Builtin)
}

func TestLoadStubs_MissingExtensionDirSkipped(t *testing.T) {
	root := t.TempDir()
	idx := NewWorkspaceIndex()
	loaded := LoadStubs(idx, root, []string{"NonexistentExt"})
	assert.Equal(t, 0, loaded)
}

func TestDefaultExtensions_ContainsCore(t *testing.T) {
	assert.Contains(t, DefaultExtensions, "Core")
	assert.Contains(t, DefaultExtensions, "standard")
}
