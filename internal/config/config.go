package config

import (
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ProjectRoot string   `toml:"project_root"`
	SourceRoots []string `toml:"source_roots"`
	Exclude     Exclude  `toml:"exclude"`
	Resolve     Resolve  `toml:"resolve"`
	Output      Output   `toml:"output"`
	Watch       Watch    `toml:"watch"`
	History     History  `toml:"history"`
	Workers     int      `toml:"workers"`
}

type Exclude struct {
	Dirs []string `toml:"dirs"`
}

type Resolve struct {
	// DropUnresolved removes external edges for imports that did not
	// resolve to a known module instead of keeping them as external nodes.
	DropUnresolved bool `toml:"drop_unresolved"`
}

type Output struct {
	DOT     string `toml:"dot"`
	Mermaid string `toml:"mermaid"`
	TSV     string `toml:"tsv"`
	List    string `toml:"list"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type History struct {
	Path       string `toml:"path"`
	ProjectKey string `toml:"project_key"`
}

// DefaultExcludeDirs are directory name patterns pruned during scanning
// regardless of configuration. Virtualenvs and build output would otherwise
// flood the graph with vendored copies of the codebase.
var DefaultExcludeDirs = []string{
	"venv*",
	".venv",
	"__pycache__",
	".git",
	".pytest_cache",
	"*.egg-info",
	"build",
	"dist",
	".tox",
	".mypy_cache",
	"node_modules",
	"eggs",
	".idea",
	".vscode",
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a config usable without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.ProjectRoot == "" {
		c.ProjectRoot = "."
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.History.ProjectKey == "" {
		c.History.ProjectKey = "default"
	}
}

// ExcludePatterns returns the default exclude patterns merged with the
// configured ones.
func (c *Config) ExcludePatterns() []string {
	patterns := make([]string, 0, len(DefaultExcludeDirs)+len(c.Exclude.Dirs))
	patterns = append(patterns, DefaultExcludeDirs...)
	patterns = append(patterns, c.Exclude.Dirs...)
	return patterns
}
