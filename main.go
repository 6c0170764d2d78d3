package main

import (
	"log"
	"os"

	"github.com/hightemp/php-lsp/internal/lsp"
)

// version is set during build by goreleaser, matching the teacher's wiring.
var version = "dev"

func main() {
	log.SetFlags(0)

	projectRoot, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}

	stubsPath := resolveStubsPath(projectRoot)
	if stubsPath == "" {
		log.Printf("no phpstorm-stubs checkout found (set PHP_LSP_STUBS_PATH); builtin symbols will be unavailable")
	} else {
		log.Printf("using stubs: %s", stubsPath)
	}

	log.Printf("php-lsp version: %s", version)

	server := lsp.NewServer(stubsPath, version)

	if err := server.Start(os.Stdin, os.Stdout); err != nil {
		log.Fatalf("LSP server error: %v", err)
	}
}
