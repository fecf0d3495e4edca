package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueSource records where a resolved setting came from
type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceDefault ValueSource = "default"
)

// Environment variable names. NOTESEARCH_EMBEDDING_PROVIDER and friends
// are read by the embedder factory; the rest resolve here.
const (
	EnvConfigPath    = "NOTESEARCH_CONFIG"
	EnvDBPath        = "NOTESEARCH_DB"
	EnvOracleURL     = "NOTESEARCH_ORACLE_URL"
	EnvOracleModel   = "NOTESEARCH_ORACLE_MODEL"
	EnvSearchMode    = "NOTESEARCH_MODE"
	EnvLexicalWeight = "NOTESEARCH_LEXICAL_WEIGHT"
	EnvVectorWeight  = "NOTESEARCH_VECTOR_WEIGHT"
	EnvCacheDisabled = "NOTESEARCH_CACHE_DISABLED"
)

// Built-in defaults
const (
	DefaultDBFile      = "notes.db"
	DefaultOracleModel = "llama3.2"
	DefaultSearchMode  = "hybrid"
)

// ResolvedValue is a setting plus its provenance, for diagnostics
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolvedConfig is the fully resolved runtime configuration. Resolution
// precedence is built-in default < config file < environment.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath      ResolvedValue `json:"db_path"`
	OracleURL   ResolvedValue `json:"oracle_url"`
	OracleModel ResolvedValue `json:"oracle_model"`

	SearchMode ResolvedValue `json:"search_mode"`

	LexicalWeight ResolvedValue `json:"lexical_weight"`
	VectorWeight  ResolvedValue `json:"vector_weight"`

	CacheDisabled ResolvedValue `json:"cache_disabled"`
}

// fileConfig mirrors the on-disk YAML layout
type fileConfig struct {
	DBPath string `yaml:"db_path"`
	Oracle struct {
		URL   string `yaml:"url"`
		Model string `yaml:"model"`
	} `yaml:"oracle"`
	Search struct {
		Mode          string  `yaml:"mode"`
		LexicalWeight float64 `yaml:"lexical_weight"`
		VectorWeight  float64 `yaml:"vector_weight"`
	} `yaml:"search"`
	Cache struct {
		Disabled bool `yaml:"disabled"`
	} `yaml:"cache"`
}

// DefaultConfigPath is ~/.notesearch/config.yaml
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".notesearch", "config.yaml")
}

// DefaultDBPath is ~/.notesearch/notes.db
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".notesearch", DefaultDBFile)
}

// Resolve loads the config file (if any), then overlays environment
// variables. A missing config file is not an error; a malformed one is.
func Resolve(configPath string) (ResolvedConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:    path,
		DBPath:        ResolvedValue{Value: DefaultDBPath(), Source: SourceDefault, From: "built-in default"},
		OracleModel:   ResolvedValue{Value: DefaultOracleModel, Source: SourceDefault, From: "built-in default"},
		SearchMode:    ResolvedValue{Value: DefaultSearchMode, Source: SourceDefault, From: "built-in default"},
		LexicalWeight: ResolvedValue{Value: "1.0", Source: SourceDefault, From: "built-in default"},
		VectorWeight:  ResolvedValue{Value: "1.0", Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.OracleURL, cfg.Oracle.URL, SourceConfig, path)
		apply(&out.OracleModel, cfg.Oracle.Model, SourceConfig, path)
		apply(&out.SearchMode, cfg.Search.Mode, SourceConfig, path)
		if cfg.Search.LexicalWeight > 0 {
			apply(&out.LexicalWeight, formatWeight(cfg.Search.LexicalWeight), SourceConfig, path)
		}
		if cfg.Search.VectorWeight > 0 {
			apply(&out.VectorWeight, formatWeight(cfg.Search.VectorWeight), SourceConfig, path)
		}
		if cfg.Cache.Disabled {
			out.CacheDisabled = ResolvedValue{Value: "true", Source: SourceConfig, From: path}
		}
	}

	applyEnv(&out.DBPath, EnvDBPath)
	applyEnv(&out.OracleURL, EnvOracleURL)
	applyEnv(&out.OracleModel, EnvOracleModel)
	applyEnv(&out.SearchMode, EnvSearchMode)
	applyEnv(&out.LexicalWeight, EnvLexicalWeight)
	applyEnv(&out.VectorWeight, EnvVectorWeight)
	applyEnv(&out.CacheDisabled, EnvCacheDisabled)

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	return out, nil
}

// Weights returns the parsed lexical and vector weights, falling back to
// 1.0 when a value is absent or unparseable
func (r ResolvedConfig) Weights() (lexical, vector float64) {
	return parseWeight(r.LexicalWeight.Value), parseWeight(r.VectorWeight.Value)
}

// CachingEnabled reports whether caches should be active
func (r ResolvedConfig) CachingEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(r.CacheDisabled.Value))
	return v != "true" && v != "1" && v != "yes"
}

func parseWeight(raw string) float64 {
	w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || w <= 0 {
		return 1.0
	}
	return w
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
