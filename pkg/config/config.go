// Package config loads docintel's runtime configuration: a project-root
// YAML file for budgets/delays/retention, with environment-variable
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project-root config file's name.
const FileName = ".docintelrc"

// Config is docintel's full runtime configuration.
type Config struct {
	FullDocTokenThreshold int    `yaml:"fullDocTokenThreshold"`
	AutosaveDebounceMS    int    `yaml:"autosaveDebounceMs"`
	SaveMaxRetries        int    `yaml:"saveMaxRetries"`
	SnapshotRetention      int    `yaml:"snapshotRetention"`
	MinAgentSectionChars   int    `yaml:"minAgentSectionChars"`
	OpenAIModel            string `yaml:"openaiModel"`
	OpenAIBaseURL          string `yaml:"openaiBaseUrl"`
	TiktokenEncoding       string `yaml:"tiktokenEncoding"`
	UserDataDir            string `yaml:"userDataDir"`
	RecentsDBPath          string `yaml:"recentsDbPath"`

	// OpenAIAPIKey is never read from YAML; it is sourced exclusively from
	// the OPENAI_API_KEY environment variable (optionally via .env).
	OpenAIAPIKey string `yaml:"-"`
}

// Defaults returns a Config populated with the documented fixed values
// (token threshold, debounce, retention) plus reasonable defaults for the
// rest.
func Defaults() Config {
	return Config{
		FullDocTokenThreshold: 8000,
		AutosaveDebounceMS:    1500,
		SaveMaxRetries:        3,
		SnapshotRetention:     5,
		MinAgentSectionChars:  50,
		OpenAIModel:           "gpt-4o-mini",
		UserDataDir:           ".",
		RecentsDBPath:         filepath.Join(".", "ai-libre", "recents.db"),
	}
}

// FindProjectRoot walks up from the current directory looking for
// FileName, returning the directory that contains it, or the current
// directory if none is found.
func FindProjectRoot() (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("config: failed to get current directory: %w", err)
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, false, nil
		}
		dir = parent
	}
}

// Load reads FileName from projectRoot (returning Defaults() if absent),
// then applies environment-variable overrides, loading a .env file in
// projectRoot first when present.
func Load(projectRoot string) (Config, error) {
	cfg := Defaults()

	path := filepath.Join(projectRoot, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
			return Config{}, fmt.Errorf("config: failed to parse %q: %w", path, unmarshalErr)
		}
	case os.IsNotExist(err):
		// No project config file; defaults stand.
	default:
		return Config{}, fmt.Errorf("config: failed to read %q: %w", path, err)
	}

	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("DOCINTEL_OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("DOCINTEL_OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}

	return cfg, nil
}

// Save writes cfg as YAML to FileName in projectRoot.
func Save(projectRoot string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: failed to serialize config: %w", err)
	}

	header := "# docintel configuration file\n\n"
	data = append([]byte(header), data...)

	path := filepath.Join(projectRoot, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write %q: %w", path, err)
	}
	return nil
}
