package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file into the process environment.
// Variables already set in the environment win over the file.
//
// With explicit paths only those are tried. Otherwise the first .env found
// among envCandidates is loaded. A missing .env is not an error.
func LoadEnv(paths ...string) string {
	if len(paths) > 0 {
		if err := godotenv.Load(paths...); err != nil {
			log.Printf("[Config] No .env at %v, using system environment variables", paths)
			return ""
		}
		return paths[0]
	}

	candidates := envCandidates()
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("[Config] Failed to load .env from %s: %v", p, err)
			return ""
		}
		log.Printf("[Config] Loaded .env from %s", p)
		return p
	}

	log.Printf("[Config] No .env file found (searched: %v), using system environment variables", candidates)
	return ""
}

// envCandidates lists .env locations: the executable's directory and up to
// three parents, then the working directory.
func envCandidates() []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dir := filepath.Dir(exe)
		for i := 0; i <= 3; i++ {
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		add(filepath.Join(cwd, ".env"))
	}
	return out
}
