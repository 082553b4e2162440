package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

// UseSite points c at the site directory dir, detecting its generator and
// content directory. The editor is taken from $EDITOR.
func (c *Config) UseSite(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve site path: %w", err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("resolve site path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat site path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("site path is not a directory: %s", abs)
	}

	gen := DetectGenerator(abs)
	c.Site = SiteConfig{
		Name:       filepath.Base(abs),
		Path:       abs,
		ContentDir: DetectContentDir(abs, gen),
		Generator:  gen,
		Editor:     os.Getenv("EDITOR"),
	}
	return c.Validate()
}

// DetectGenerator guesses the generator from marker files in dir, defaulting
// to hugo.
func DetectGenerator(dir string) Generator {
	switch {
	case anyExists(dir, "hugo.toml", "hugo.yaml", "config.toml"):
		return GeneratorHugo
	case anyExists(dir, "_config.yml"):
		return GeneratorJekyll
	case anyExists(dir, ".eleventy.js", "eleventy.config.js"):
		return GeneratorEleventy
	}
	return GeneratorHugo
}

// DetectContentDir returns the conventional content directory for gen.
func DetectContentDir(dir string, gen Generator) string {
	switch gen {
	case GeneratorJekyll:
		return "_posts"
	case GeneratorEleventy:
		if anyExists(dir, "posts") {
			return "posts"
		}
		if anyExists(dir, "src") {
			return "src"
		}
		return "posts"
	}
	return "content"
}

func anyExists(dir string, names ...string) bool {
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(dir, n)); err == nil {
			return true
		}
	}
	return false
}
