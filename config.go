package main

import (
	"os"
	"os/user"
	"path/filepath"
)

// resolveStubsPath locates the phpstorm-stubs checkout this process should
// load builtin PHP/extension symbols from (C9), per spec §4.1's builtin
// coverage requirement. Repurposed from the teacher's project-cache-folder
// lookup (getProjectCacheFolder/getUserCacheDir): this server persists no
// index state to disk, so the only thing worth locating under a cache/config
// directory is the stubs checkout itself, not a database file.
func resolveStubsPath(projectRoot string) string {
	if env := os.Getenv("PHP_LSP_STUBS_PATH"); env != "" {
		return env
	}

	vendored := filepath.Join(projectRoot, "vendor", "jetbrains", "phpstorm-stubs")
	if info, err := os.Stat(vendored); err == nil && info.IsDir() {
		return vendored
	}

	if cacheDir, err := getUserCacheDir(); err == nil {
		candidate := filepath.Join(cacheDir, "php-lsp", "phpstorm-stubs")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}

	return ""
}

func getUserCacheDir() (string, error) {
	configDir, err := os.UserCacheDir()
	if err != nil {
		usr, err := user.Current()
		if err != nil {
			return "", err
		}
		return filepath.Join(usr.HomeDir, ".config"), nil
	}
	return configDir, nil
}
