package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/withObsrvr/obsrvr-movie-roi/internal/tables"
)

// Config is the full run configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Inputs  InputsConfig  `yaml:"inputs"`
	Storage StorageConfig `yaml:"storage"`
	Output  OutputConfig  `yaml:"output"`
	Genres  GenresConfig  `yaml:"genres"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SourceConfig selects where the input tables are read from.
type SourceConfig struct {
	Mode       string `yaml:"mode"` // "local" | "gcs" | "s3"
	LocalPath  string `yaml:"local_path"`
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Region   string `yaml:"s3_region"`
}

// InputsConfig names the three input files relative to the source.
type InputsConfig struct {
	Basics  string `yaml:"basics"`
	Ratings string `yaml:"ratings"`
	Budgets string `yaml:"budgets"`
}

// StorageConfig selects where run outputs are published.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
	LocalDir   string `yaml:"local_dir"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Region   string `yaml:"s3_region"`
}

// OutputConfig controls which output formats are written.
type OutputConfig struct {
	ParquetCompression string `yaml:"parquet_compression"`
	WriteCSV           bool   `yaml:"write_csv"`
}

// GenresConfig controls subgenre matching and ranking.
type GenresConfig struct {
	Match string `yaml:"match"` // "substring" | "token"
	Top   int    `yaml:"top"`
}

// LogConfig sets the log format and level.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// MetricsConfig sets the metric namespace and optional textfile path.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Textfile  string `yaml:"textfile"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Mode:      "local",
			LocalPath: "./data",
		},
		Inputs: InputsConfig{
			Basics:  "imdb.title.basics.csv.gz",
			Ratings: "imdb.title.ratings.csv.gz",
			Budgets: "tn.movie_budgets.csv.gz",
		},
		Storage: StorageConfig{
			Backend:  "local",
			Prefix:   "movie-roi/",
			LocalDir: "./output",
		},
		Output: OutputConfig{
			ParquetCompression: tables.DefaultParquetConfig().Compression,
			WriteCSV:           true,
		},
		Genres: GenresConfig{
			Match: "substring",
			Top:   10,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Namespace: "movie_roi",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file,
// an optional YAML file named by CONFIG_FILE and environment overrides.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad calls Load and exits on error.
func MustLoad() Config {
	log.Println("[config] loading")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Source.Mode = getenvDefault("SOURCE_MODE", c.Source.Mode)
	c.Source.LocalPath = getenvDefault("DATA_DIR", c.Source.LocalPath)
	c.Source.Bucket = getenvDefault("SOURCE_BUCKET", c.Source.Bucket)
	c.Source.Prefix = getenvDefault("SOURCE_PREFIX", c.Source.Prefix)
	c.Source.S3Endpoint = getenvDefault("SOURCE_S3_ENDPOINT", c.Source.S3Endpoint)
	c.Source.S3Region = getenvDefault("SOURCE_S3_REGION", c.Source.S3Region)

	c.Inputs.Basics = getenvDefault("BASICS_FILE", c.Inputs.Basics)
	c.Inputs.Ratings = getenvDefault("RATINGS_FILE", c.Inputs.Ratings)
	c.Inputs.Budgets = getenvDefault("BUDGETS_FILE", c.Inputs.Budgets)

	c.Storage.Backend = getenvDefault("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Bucket = getenvDefault("STORAGE_BUCKET", c.Storage.Bucket)
	c.Storage.Prefix = getenvDefault("STORAGE_PREFIX", c.Storage.Prefix)
	c.Storage.LocalDir = getenvDefault("OUTPUT_DIR", c.Storage.LocalDir)
	c.Storage.S3Endpoint = getenvDefault("STORAGE_S3_ENDPOINT", c.Storage.S3Endpoint)
	c.Storage.S3Region = getenvDefault("STORAGE_S3_REGION", c.Storage.S3Region)

	c.Output.ParquetCompression = getenvDefault("PARQUET_COMPRESSION", c.Output.ParquetCompression)
	if v := os.Getenv("WRITE_CSV"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse WRITE_CSV %q: %w", v, err)
		}
		c.Output.WriteCSV = parsed
	}

	c.Genres.Match = getenvDefault("GENRE_MATCH", c.Genres.Match)
	if v := os.Getenv("GENRE_TOP"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse GENRE_TOP %q: %w", v, err)
		}
		c.Genres.Top = parsed
	}

	c.Log.Format = getenvDefault("LOG_FORMAT", c.Log.Format)
	c.Log.Level = getenvDefault("LOG_LEVEL", c.Log.Level)

	c.Metrics.Namespace = getenvDefault("METRICS_NAMESPACE", c.Metrics.Namespace)
	c.Metrics.Textfile = getenvDefault("METRICS_TEXTFILE", c.Metrics.Textfile)
	return nil
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.Source.Mode {
	case "local":
		if c.Source.LocalPath == "" {
			return fmt.Errorf("DATA_DIR required for local source")
		}
	case "gcs", "s3":
		if c.Source.Bucket == "" {
			return fmt.Errorf("SOURCE_BUCKET required for %s source", c.Source.Mode)
		}
	default:
		return fmt.Errorf("unknown source mode: %s", c.Source.Mode)
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("OUTPUT_DIR required for local storage")
		}
	case "gcs", "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("STORAGE_BUCKET required for %s storage", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.Genres.Top < 0 {
		return fmt.Errorf("genre top must not be negative: %d", c.Genres.Top)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
