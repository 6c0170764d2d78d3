package phplsp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NamespaceMap is a resolved Composer autoload configuration: namespace
// prefix to candidate directories, plus classmap/files entries, per
// original_source/server/crates/php-lsp-index/src/composer.rs's
// NamespaceMap. Grounded on that Rust source since the teacher repo has
// no Composer-autoload component of its own (Shopware bundles don't use
// PSR-4 the way a generic PHP project does).
type NamespaceMap struct {
	PSR4     []prefixDirs
	PSR0     []prefixDirs
	Classmap []string
	Files    []string
}

type prefixDirs struct {
	Prefix string
	Dirs   []string
}

// psr4Value unmarshals a Composer autoload value that is either a single
// path string or an array of path strings, matching the Rust original's
// untagged Psr4Value enum.
type psr4Value []string

func (v *psr4Value) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = []string{single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(data, &multi); err != nil {
		return fmt.Errorf("psr4 value must be a string or array of strings: %w", err)
	}
	*v = multi
	return nil
}

type autoloadSection struct {
	PSR4     map[string]psr4Value `json:"psr-4"`
	PSR0     map[string]psr4Value `json:"psr-0"`
	Classmap []string             `json:"classmap"`
	Files    []string             `json:"files"`
}

type composerJSON struct {
	Autoload    autoloadSection `json:"autoload"`
	AutoloadDev autoloadSection `json:"autoload-dev"`
}

// ParseComposerJSON reads and parses a composer.json file, resolving all
// relative autoload paths against the file's own directory.
func ParseComposerJSON(path string) (*NamespaceMap, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseComposerJSONBytes(content, filepath.Dir(path))
}

// ParseComposerJSONBytes parses composer.json content, joining relative
// autoload entries against baseDir, matching the Rust original's
// parse_composer_json_str(content, base_dir).
func ParseComposerJSONBytes(content []byte, baseDir string) (*NamespaceMap, error) {
	var doc composerJSON
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid composer.json: %w", err)
	}
	m := &NamespaceMap{}
	applyAutoloadSection(&doc.Autoload, baseDir, m)
	applyAutoloadSection(&doc.AutoloadDev, baseDir, m)
	return m, nil
}

func applyAutoloadSection(section *autoloadSection, baseDir string, m *NamespaceMap) {
	for prefix, dirs := range section.PSR4 {
		m.PSR4 = append(m.PSR4, prefixDirs{Prefix: prefix, Dirs: joinAll(baseDir, []string(dirs))})
	}
	for prefix, dirs := range section.PSR0 {
		m.PSR0 = append(m.PSR0, prefixDirs{Prefix: prefix, Dirs: joinAll(baseDir, []string(dirs))})
	}
	for _, p := range section.Classmap {
		m.Classmap = append(m.Classmap, filepath.Join(baseDir, p))
	}
	for _, p := range section.Files {
		m.Files = append(m.Files, filepath.Join(baseDir, p))
	}
}

func joinAll(baseDir string, rel []string) []string {
	out := make([]string, len(rel))
	for i, r := range rel {
		out[i] = filepath.Join(baseDir, r)
	}
	return out
}

// ResolveClassToPaths implements the Rust original's resolve_class_to_paths:
// try every PSR-4 prefix (plain `\`→`/` substitution), then every PSR-0
// prefix (which additionally maps `_`→`/`), returning every candidate file
// path that might hold fqn's declaration.
func (m *NamespaceMap) ResolveClassToPaths(fqn string) []string {
	var results []string
	for _, pd := range m.PSR4 {
		if rel, ok := strings.CutPrefix(fqn, pd.Prefix); ok {
			relPath := strings.ReplaceAll(rel, `\`, "/") + ".php"
			for _, dir := range pd.Dirs {
				results = append(results, filepath.Join(dir, relPath))
			}
		}
	}
	for _, pd := range m.PSR0 {
		if rel, ok := strings.CutPrefix(fqn, pd.Prefix); ok {
			relPath := strings.NewReplacer(`\`, "/", "_", "/").Replace(rel) + ".php"
			for _, dir := range pd.Dirs {
				results = append(results, filepath.Join(dir, relPath))
			}
		}
	}
	return results
}

// SourceDirectories implements the Rust original's source_directories:
// every directory the background scan (C12) should walk for PHP files.
func (m *NamespaceMap) SourceDirectories() []string {
	var dirs []string
	for _, pd := range m.PSR4 {
		dirs = append(dirs, pd.Dirs...)
	}
	for _, pd := range m.PSR0 {
		dirs = append(dirs, pd.Dirs...)
	}
	dirs = append(dirs, m.Classmap...)
	return dirs
}

// installedPackage is the subset of a Composer 2.x
// vendor/composer/installed.json package entry this loader needs.
type installedPackage struct {
	Name        string          `json:"name"`
	InstallPath string          `json:"install-path"`
	Autoload    autoloadSection `json:"autoload"`
}

type installedJSON struct {
	Packages []installedPackage `json:"packages"`
}

// FoldVendorPackages merges every vendor package's own autoload rules into
// m, per SPEC_FULL.md §4.8+ "vendor package folding": reads
// vendor/composer/installed.json (Composer 2.x schema) and resolves each
// package's relative `install-path` (itself relative to vendor/composer/)
// before joining its autoload paths, so references into vendor code
// resolve the same way references into the project's own source do.
func (m *NamespaceMap) FoldVendorPackages(projectRoot string) error {
	installedPath := filepath.Join(projectRoot, "vendor", "composer", "installed.json")
	content, err := os.ReadFile(installedPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", installedPath, err)
	}
	var doc installedJSON
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("invalid installed.json: %w", err)
	}
	vendorComposerDir := filepath.Join(projectRoot, "vendor", "composer")
	for _, pkg := range doc.Packages {
		installPath := pkg.InstallPath
		if installPath == "" {
			installPath = filepath.Join("..", pkg.Name)
		}
		baseDir := filepath.Clean(filepath.Join(vendorComposerDir, installPath))
		applyAutoloadSection(&pkg.Autoload, baseDir, m)
	}
	return nil
}
