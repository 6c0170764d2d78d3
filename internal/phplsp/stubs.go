package phplsp

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions is the list of phpstorm-stubs extension directories
// the server loads (there is no client override), per
// original_source/server/crates/php-lsp-index/src/stubs.rs's
// DEFAULT_EXTENSIONS.
var DefaultExtensions = []string{
	"Core", "standard", "date", "json", "pcre", "SPL", "mbstring", "curl",
	"dom", "SimpleXML", "xml", "filter", "hash", "session", "tokenizer",
	"ctype", "fileinfo", "pdo", "Reflection", "intl", "openssl", "zlib",
	"bcmath", "gd", "iconv", "mysqli", "sodium", "exif",
}

// LoadStubs parses every `.php` file in each of extensions' directories
// under stubsPath and publishes the extracted symbols into index with the
// Builtin modifier forced on, per stubs.rs's load_stubs. Returns the
// number of files loaded.
func LoadStubs(index *WorkspaceIndex, stubsPath string, extensions []string) int {
	loaded := 0
	for _, ext := range extensions {
		extDir := filepath.Join(stubsPath, ext)
		info, err := os.Stat(extDir)
		if err != nil || !info.IsDir() {
			log.Printf("stubs: extension directory not found: %s", extDir)
			continue
		}
		for _, file := range collectStubFiles(extDir) {
			n, err := loadStubFile(index, ext, file)
			if err != nil {
				log.Printf("stubs: failed to read %s: %v", file, err)
				continue
			}
			if n > 0 {
				log.Printf("stubs: loaded %s/%s: %d symbols", ext, filepath.Base(file), n)
			}
			loaded++
		}
	}
	return loaded
}

func loadStubFile(index *WorkspaceIndex, ext, file string) (int, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return 0, err
	}
	parser := NewFileParser()
	defer parser.Close()
	parser.ParseFull(source)
	tree := parser.Tree()
	if tree == nil {
		return 0, nil
	}

	uri := fmt.Sprintf("phpstub://%s/%s", ext, filepath.Base(file))
	fs := ExtractFileSymbols(tree.RootNode(), source, uri)
	for i := range fs.Symbols {
		fs.Symbols[i].Modifiers.Builtin = true
	}
	index.UpdateFile(uri, fs)
	return len(fs.Symbols), nil
}

// collectStubFiles lists every `.php` file directly inside dir
// (non-recursive), matching stubs.rs's collect_stub_files.
func collectStubFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".php") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files
}
