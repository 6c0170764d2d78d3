package phplsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceMap_FoldVendorPackages(t *testing.T) {
	root := t.TempDir()
	composerDir := filepath.Join(root, "vendor", "composer")
	require.NoError(t, os.MkdirAll(composerDir, 0755))

	installedJSON := `{
		"packages": [
			{
				"name": "acme/widgets",
				"install-path": "../acme/widgets",
				"autoload": {"psr-4": {"Acme\\Widgets\\": "src/"}}
			}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(composerDir, "installed.json"), []byte(installedJSON), 0644))

	m := &NamespaceMap{}
	require.NoError(t, m.FoldVendorPackages(root))

	require.Len(t, m.PSR4, 1)
	assert.Equal(t, `Acme\Widgets\`, m.PSR4[0].Prefix)
	require.Len(t, m.PSR4[0].Dirs, 1)
	assert.Equal(t, filepath.Join(root, "vendor", "acme", "widgets", "src"), m.PSR4[0].Dirs[0])
}

func TestNamespaceMap_FoldVendorPackages_NoVendorDir(t *testing.T) {
	m := &NamespaceMap{}
	assert.NoError(t, m.FoldVendorPackages(t.TempDir()))
	assert.Empty(t, m.PSR4)
}
