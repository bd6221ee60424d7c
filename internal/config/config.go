package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

type Config struct {
	Inputs     InputConfig
	Outputs    OutputConfig
	Processing ProcessingConfig
	Cache      CacheConfig
	Logger     LoggerConfig
}

type InputConfig struct {
	TransactionsFile string
	RetailersFile    string
	CatalogFile      string
	OverallFile      string
	LookupFile       string
	Delimiter        rune // 0 means detect from the header line
}

type OutputConfig struct {
	Dir          string
	JSONFile     string
	HTMLFile     string
	EnrichedFile string
	SQLiteFile   string
}

type ProcessingConfig struct {
	Workers          int
	BatchSize        int
	ProgressInterval time.Duration
	CityTopCustomers int
	AreaTopCustomers int
	HTMLMaxCustomers int
	Timeout          time.Duration // 0 disables the run deadline
}

type CacheConfig struct {
	Enabled bool
	Dir     string
}

type LoggerConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, is applied first without overriding
// variables that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	delimiter, err := parseDelimiter(getEnvString("CSV_DELIMITER", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Inputs: InputConfig{
			TransactionsFile: getEnvString("TRANSACTIONS_FILE", "data_cleaned.csv"),
			RetailersFile:    getEnvString("RETAILERS_FILE", "retailers_profiles.csv"),
			CatalogFile:      getEnvString("CATALOG_FILE", "base-products.csv"),
			OverallFile:      getEnvString("OVERALL_FILE", "overall.csv"),
			LookupFile:       getEnvString("LOOKUP_FILE", ""),
			Delimiter:        delimiter,
		},
		Outputs: OutputConfig{
			Dir:          getEnvString("OUTPUT_DIR", "report"),
			JSONFile:     getEnvString("REPORT_JSON", "dashboard_data.json"),
			HTMLFile:     getEnvString("REPORT_HTML", "dashboard.html"),
			EnrichedFile: getEnvString("ENRICHED_FILE", "data_cleaned_enriched.csv"),
			SQLiteFile:   getEnvString("SQLITE_FILE", ""),
		},
		Processing: ProcessingConfig{
			Workers:          getEnvInt("WORKERS", 4),
			BatchSize:        getEnvInt("BATCH_SIZE", 10000),
			ProgressInterval: getEnvDuration("PROGRESS_INTERVAL", 2*time.Second),
			CityTopCustomers: getEnvInt("CITY_TOP_CUSTOMERS", 50),
			AreaTopCustomers: getEnvInt("AREA_TOP_CUSTOMERS", 10),
			HTMLMaxCustomers: getEnvInt("HTML_MAX_CUSTOMERS", 500),
			Timeout:          getEnvDuration("RUN_TIMEOUT", 10*time.Minute),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			Dir:     getEnvString("CACHE_DIR", ".cache"),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Inputs.TransactionsFile == "" {
		return fmt.Errorf("transactions file path cannot be empty")
	}

	if c.Outputs.Dir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	if c.Processing.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Processing.Workers)
	}

	if c.Processing.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Processing.BatchSize)
	}

	if c.Processing.CityTopCustomers < 0 || c.Processing.AreaTopCustomers < 0 || c.Processing.HTMLMaxCustomers < 0 {
		return fmt.Errorf("top-N limits cannot be negative")
	}

	if c.Processing.Timeout < 0 {
		return fmt.Errorf("run timeout cannot be negative, got %s", c.Processing.Timeout)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Cache.Enabled && c.Cache.Dir == "" {
		return fmt.Errorf("cache directory cannot be empty when the cache is enabled")
	}

	return nil
}

// OutputPath resolves an output file name against the output directory.
func (c *Config) OutputPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Outputs.Dir, name)
}

func parseDelimiter(value string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	}
	if utf8.RuneCountInString(value) != 1 {
		return 0, fmt.Errorf("csv delimiter must be a single character, got %q", value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
