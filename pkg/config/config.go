package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultAPIURL       = "https://fingertips.phe.org.uk/api"
	DefaultDataDir      = "data"
	DefaultPivotArea    = "GPs"
	DefaultBulkBatch    = 5
	DefaultOutputFormat = "csv"
)

// DefaultBulkIndicators is the indicator list fetched by fetch-raw when the
// configuration names none.
var DefaultBulkIndicators = []string{"1679", "93553", "92588", "91280"}

type Config struct {
	DataDir      string      `toml:"data_dir"`
	APIURL       string      `toml:"api_url"`
	HTTPTimeout  Duration    `toml:"http_timeout"`
	OutputFormat string      `toml:"output_format"`
	HistoryDB    string      `toml:"history_db,omitempty"`
	Pivot        PivotConfig `toml:"pivot"`
	Bulk         BulkConfig  `toml:"bulk"`
	Web          WebConfig   `toml:"web"`
}

type PivotConfig struct {
	Input           string `toml:"input"`
	Output          string `toml:"output"`
	AreaType        string `toml:"area_type"`
	GroupByAreaCode bool   `toml:"group_by_area_code"`
}

type BulkConfig struct {
	Indicators []string `toml:"indicators"`
	BatchSize  int      `toml:"batch_size"`
}

type WebConfig struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads configPath. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.HistoryDB == "" {
		c.HistoryDB = filepath.Join(c.DataDir, "history.db")
	}
	if c.Pivot.Input == "" {
		c.Pivot.Input = filepath.Join(c.RawDir(), "fingertips_data.csv")
	}
	if c.Pivot.Output == "" {
		c.Pivot.Output = filepath.Join(c.ProcessedDir(), "fingertips_data.csv")
	}
	if c.Pivot.AreaType == "" {
		c.Pivot.AreaType = DefaultPivotArea
	}
	if len(c.Bulk.Indicators) == 0 {
		c.Bulk.Indicators = append([]string(nil), DefaultBulkIndicators...)
	}
	if c.Bulk.BatchSize <= 0 {
		c.Bulk.BatchSize = DefaultBulkBatch
	}
	if c.Web.Host == "" {
		c.Web.Host = "localhost"
	}
	if c.Web.Port == "" {
		c.Web.Port = "8080"
	}
}

// HelpersDir holds the cached indicator and area metadata.
func (c *Config) HelpersDir() string {
	return filepath.Join(c.DataDir, "helpers")
}

// ProcessedDir receives downloaded and pivoted files.
func (c *Config) ProcessedDir() string {
	return filepath.Join(c.DataDir, "processed")
}

// RawDir receives bulk raw downloads.
func (c *Config) RawDir() string {
	return filepath.Join(c.DataDir, "raw")
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetConfigDir returns the configuration directory, honouring XDG_CONFIG_HOME.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "fingertips"), nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
