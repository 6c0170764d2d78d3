package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

// debug_ast dumps the tree-sitter-php CST for a file (or stdin), one line
// per node, for inspecting how C2-C11 will see a given piece of source.
func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		fmt.Println("Usage: go run cmd/debug_ast/main.go <file.php>")
		fmt.Println("       go run cmd/debug_ast/main.go - < input.txt")
		os.Exit(1)
	}

	filePath := args[0]

	var fileContent []byte
	var err error
	if filePath == "-" {
		fileContent, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Printf("Error reading stdin: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Analyzing AST from stdin")
	} else {
		fileContent, err = os.ReadFile(filePath)
		if err != nil {
			fmt.Printf("Error reading file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Analyzing AST for file: %s\n\n", filePath)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())); err != nil {
		fmt.Printf("Error setting language: %v\n", err)
		os.Exit(1)
	}

	tree := parser.Parse(fileContent, nil)
	if tree == nil {
		fmt.Println("Error: failed to parse content")
		os.Exit(1)
	}
	defer tree.Close()

	fmt.Printf("Content:\n---\n%s\n---\n\n", string(fileContent))
	printNodeStructure(tree.RootNode(), fileContent, 0)
}

func printNodeStructure(node *tree_sitter.Node, fileContent []byte, depth int) {
	if node == nil {
		return
	}

	indent := strings.Repeat("  ", depth)

	startPos := node.StartPosition()
	endPos := node.EndPosition()

	nodeText := ""
	if node.NamedChildCount() == 0 {
		text := string(node.Utf8Text(fileContent))
		if len(text) > 50 {
			text = text[:47] + "..."
		}
		text = strings.ReplaceAll(text, "\n", "\\n")
		text = strings.ReplaceAll(text, "\r", "\\r")
		text = strings.ReplaceAll(text, "\t", "\\t")
		nodeText = fmt.Sprintf(" = %q", text)
	}

	fmt.Printf("%s%s [%d:%d-%d:%d]%s\n",
		indent, node.Kind(),
		startPos.Row, startPos.Column,
		endPos.Row, endPos.Column,
		nodeText,
	)

	for i := uint(0); i < node.NamedChildCount(); i++ {
		printNodeStructure(node.NamedChild(i), fileContent, depth+1)
	}
}
