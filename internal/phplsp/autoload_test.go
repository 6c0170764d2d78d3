package phplsp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComposerJSONBytes_PSR4(t *testing.T) {
	content := []byte(`{
		"autoload": {
			"psr-4": {
				"App\\": "src/",
				"App\\Tests\\": ["tests/unit/", "tests/integration/"]
			},
			"classmap": ["legacy/Old.php"],
			"files": ["helpers.php"]
		}
	}`)

	m, err := ParseComposerJSONBytes(content, "/project")
	require.NoError(t, err)

	require.Len(t, m.PSR4, 2)
	require.Len(t, m.Classmap, 1)
	assert.Equal(t, filepath.Join("/project", "legacy/Old.php"), m.Classmap[0])
	require.Len(t, m.Files, 1)
	assert.Equal(t, filepath.Join("/project", "helpers.php"), m.Files[0])
}

func TestNamespaceMap_ResolveClassToPaths_PSR4(t *testing.T) {
	m := &NamespaceMap{
		PSR4: []prefixDirs{{Prefix: `App\`, Dirs: []string{"/project/src"}}},
	}
	paths := m.ResolveClassToPaths(`App\Domain\User`)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join("/project/src", "Domain/User.php"), paths[0])
}

func TestNamespaceMap_ResolveClassToPaths_PSR0(t *testing.T) {
	m := &NamespaceMap{
		PSR0: []prefixDirs{{Prefix: `Legacy_`, Dirs: []string{"/project/lib"}}},
	}
	paths := m.ResolveClassToPaths(`Legacy_Foo_Bar`)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join("/project/lib", "Foo/Bar.php"), paths[0])
}

func TestNamespaceMap_ResolveClassToPaths_NoMatch(t *testing.T) {
	m := &NamespaceMap{
		PSR4: []prefixDirs{{Prefix: `App\`, Dirs: []string{"/project/src"}}},
	}
	assert.Empty(t, m.ResolveClassToPaths(`Other\Thing`))
}

func TestNamespaceMap_SourceDirectories(t *testing.T) {
	m := &NamespaceMap{
		PSR4: []prefixDirs{{Prefix: `App\`, Dirs: []string{"/project/src"}}},
		PSR0: []prefixDirs{{Prefix: `Legacy_`, Dirs: []string{"/project/lib"}}},
	}
	dirs := m.SourceDirectories()
	assert.Contains(t, dirs, "/project/src")
	assert.Contains(t, dirs, "/project/lib")
}

func TestPsr4Value_UnmarshalJSON_StringOrArray(t *testing.T) {
	var v psr4Value
	require.NoError(t, v.UnmarshalJSON([]byte(`"src/"`)))
	assert.Equal(t, psr4Value{"src/"}, v)

	require.NoError(t, v.UnmarshalJSON([]byte(`["a/", "b/"]`)))
	assert.Equal(t, psr4Value{"a/", "b/"}, v)

	assert.Error(t, v.UnmarshalJSON([]byte(`42`)))
}
