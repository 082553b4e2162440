package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Generator identifies the static-site generator a site is built with.
type Generator string

// Supported generators.
const (
	GeneratorHugo     Generator = "hugo"
	GeneratorJekyll   Generator = "jekyll"
	GeneratorEleventy Generator = "11ty"
)

// DevServerURL returns the default local dev server address of g.
func (g Generator) DevServerURL() string {
	switch g {
	case GeneratorJekyll:
		return "http://localhost:4000"
	case GeneratorEleventy:
		return "http://localhost:8080"
	default:
		return "http://localhost:1313"
	}
}

// Config represents the application configuration.
type Config struct {
	App  ApplicationConfig `yaml:"app"`
	Site SiteConfig        `yaml:"site"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return c.Site.Validate()
}

// ContentRoot returns the directory scanned for posts.
func (c *Config) ContentRoot() string {
	return filepath.Join(c.Site.Path, c.Site.ContentDir)
}

// PreviewURL maps a post file to its page on the generator's dev server.
// It reports false when the post does not live under the site directory.
func (c *Config) PreviewURL(postPath string) (string, bool) {
	site, err := filepath.Abs(c.Site.Path)
	if err != nil {
		return "", false
	}
	post, err := filepath.Abs(postPath)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(site, post)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	urlPath := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	return c.Site.Generator.DevServerURL() + "/" + urlPath, true
}

// ApplicationConfig holds application-level configuration.
//
// The interactive session owns the terminal, so logs go to LogFile and are
// discarded when it is empty. Watch enables the disk-change notice.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	LogFile  string     `yaml:"log_file"`
	Watch    bool       `yaml:"watch"`
}

// SiteConfig describes the site being managed.
type SiteConfig struct {
	Name       string    `yaml:"name"`
	Path       string    `yaml:"path"`
	ContentDir string    `yaml:"content_dir"`
	Generator  Generator `yaml:"generator"`
	Editor     string    `yaml:"editor"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	// Normalise empty generator to hugo.
	if c.Generator == "" {
		c.Generator = GeneratorHugo
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ContentDir, validation.Required),
		validation.Field(&c.Generator, validation.Required,
			validation.In(GeneratorHugo, GeneratorJekyll, GeneratorEleventy)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Site: SiteConfig{
			Name:       "site",
			ContentDir: "content",
			Generator:  GeneratorHugo,
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/folio/config.yaml (or the
// platform equivalent), falling back to ~/.folio/config.yaml.
func DefaultConfigPath() (string, error) {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "folio", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".folio", "config.yaml"), nil
}
