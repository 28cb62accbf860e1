// Package config loads corpusdash settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"corpusdash/internal/domain"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const EnvPrefix = "CORPUSDASH_"

const (
	KindStore   = "store"
	KindDataset = "dataset"
)

type Config struct {
	App    AppConfig             `koanf:"app"`
	Log    LogConfig             `koanf:"log"`
	Store  StoreConfig           `koanf:"store"`
	Files  FilesConfig           `koanf:"files"`
	Query  QueryConfig           `koanf:"query"`
	Client ClientConfig          `koanf:"client"`
	Views  map[string]ViewConfig `koanf:"views"`

	// FileUsed is the config file that was loaded, if any.
	FileUsed string `koanf:"-"`
}

type AppConfig struct {
	Addr        string   `koanf:"addr"`
	GinMode     string   `koanf:"gin_mode"`
	CORSOrigins []string `koanf:"cors_origins"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type StoreConfig struct {
	Driver         string        `koanf:"driver"`
	URI            string        `koanf:"uri"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type FilesConfig struct {
	Backend   string `koanf:"backend"`
	Root      string `koanf:"root"`
	Endpoint  string `koanf:"endpoint"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type QueryConfig struct {
	MaxPageSize int `koanf:"max_page_size"`
}

type ClientConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// ViewConfig describes one table endpoint, /api/<route>.
type ViewConfig struct {
	Route        string     `koanf:"route"`
	Title        string     `koanf:"title"`
	Kind         string     `koanf:"kind"`
	Database     string     `koanf:"database"`
	Collection   string     `koanf:"collection"`
	DefaultSort  SortConfig `koanf:"default_sort"`
	SearchFields []string   `koanf:"search_fields"`
	FilterFields []string   `koanf:"filter_fields"`
	Columns      []Column   `koanf:"columns"`
}

type SortConfig struct {
	Field string `koanf:"field"`
	Desc  bool   `koanf:"desc"`
}

// Column is a displayed field. Format is "", "timestamp" or "percent".
type Column struct {
	Field  string `koanf:"field"  json:"field"`
	Header string `koanf:"header" json:"header"`
	Format string `koanf:"format" json:"format,omitempty"`
}

func (v ViewConfig) Sort() domain.Sort {
	if v.DefaultSort.Field == "" {
		return domain.Sort{ID: "timestamp", Desc: true}
	}
	return domain.Sort{ID: v.DefaultSort.Field, Desc: v.DefaultSort.Desc}
}

func (v ViewConfig) Target() domain.Collection {
	return domain.Collection{Database: v.Database, Name: v.Collection}
}

// ViewNames returns the configured routes in a stable order.
func (c *Config) ViewNames() []string {
	names := make([]string, 0, len(c.Views))
	for name := range c.Views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"addr":          "app.addr",
	"gin-mode":      "app.gin_mode",
	"log-level":     "log.level",
	"store-driver":  "store.driver",
	"store-uri":     "store.uri",
	"files-backend": "files.backend",
	"files-root":    "files.root",
	"base-url":      "client.base_url",
	"timeout":       "client.timeout",
	"max-page-size": "query.max_page_size",
}

// listKeys are split on commas when they come from the environment.
var listKeys = []string{"app.cors_origins"}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"corpusdash.yaml", "corpusdash.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration. Precedence, highest first: explicitly set
// flags, CORPUSDASH_* environment variables, the config file, defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// CORPUSDASH_STORE__CONNECT_TIMEOUT -> store.connect_timeout
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
		if slices.Contains(listKeys, key) || strings.HasSuffix(key, "_fields") {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "verbose" {
				if v, _ := flags.GetBool("verbose"); v {
					return "log.level", "debug"
				}
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used

	cfg.Store.URI = os.ExpandEnv(cfg.Store.URI)
	cfg.Files.AccessKey = os.ExpandEnv(cfg.Files.AccessKey)
	cfg.Files.SecretKey = os.ExpandEnv(cfg.Files.SecretKey)

	for name, v := range cfg.Views {
		if v.Route == "" {
			v.Route = name
		}
		if v.Kind == "" {
			v.Kind = KindStore
		}
		cfg.Views[name] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
