package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tristendillon/minibundle/core/ast"
	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
)

const EnvPrefix = "MINIBUNDLE"

// FileNames are searched, in order, in the start directory and each parent.
var FileNames = []string{"minibundle.yaml", "minibundle.yml"}

type Config struct {
	Entry     string    `yaml:"entry" mapstructure:"entry"`
	Output    Output    `yaml:"output" mapstructure:"output"`
	Transform Transform `yaml:"transform" mapstructure:"transform"`
	Discover  []string  `yaml:"discover" mapstructure:"discover"`
	Runtime   Runtime   `yaml:"runtime" mapstructure:"runtime"`
	Cache     Cache     `yaml:"cache" mapstructure:"cache"`
	Watch     Watch     `yaml:"watch" mapstructure:"watch"`
	Server    Server    `yaml:"server" mapstructure:"server"`

	// Root is the directory relative paths are resolved against: the
	// directory holding the config file, or the start directory without one.
	Root string `yaml:"-" mapstructure:"-"`
	// File is the config file that was read, if any.
	File string `yaml:"-" mapstructure:"-"`
}

type Output struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	File   string `yaml:"file" mapstructure:"file"`
	Minify bool   `yaml:"minify" mapstructure:"minify"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

type Transform struct {
	Target string `yaml:"target" mapstructure:"target"`
}

type Runtime struct {
	ModuleCache bool `yaml:"module_cache" mapstructure:"module_cache"`
}

type Cache struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

type Watch struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
	Exclude  []string      `yaml:"exclude" mapstructure:"exclude"`
}

type Server struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

func Default() *Config {
	return &Config{
		Entry: "./src/index.js",
		Output: Output{
			Dir:  "dist",
			File: "bundle.js",
		},
		Transform: Transform{Target: "es2015"},
		Discover:  []string{models.ImportStatement.String()},
		Runtime:   Runtime{ModuleCache: true},
		Cache: Cache{
			Dir: filepath.Join(".minibundle", "cache"),
		},
		Watch: Watch{
			Debounce: 500 * time.Millisecond,
			Exclude:  []string{".git", "node_modules", "dist", ".minibundle"},
		},
		Server: Server{
			Host: "localhost",
			Port: 8080,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("entry", d.Entry)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.file", d.Output.File)
	v.SetDefault("output.minify", d.Output.Minify)
	v.SetDefault("output.pretty", d.Output.Pretty)
	v.SetDefault("transform.target", d.Transform.Target)
	v.SetDefault("discover", d.Discover)
	v.SetDefault("runtime.module_cache", d.Runtime.ModuleCache)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.exclude", d.Watch.Exclude)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
}

// Load reads configuration from explicitPath, or from the nearest
// minibundle.yaml at or above startDir, layered over defaults. MINIBUNDLE_*
// environment variables override both, and a .env file in the project root
// supplies variables that are not already set.
func Load(fs afero.Fs, startDir, explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := explicitPath
	if path == "" {
		if found, ok := FindUp(fs, startDir); ok {
			path = found
		}
	}

	root := startDir
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		root = filepath.Dir(path)
		logger.Debug("Config file found: %s", path)
	} else {
		logger.Debug("No config file found, using defaults and environment")
	}

	if err := loadEnvFile(fs, filepath.Join(root, ".env")); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Root = root
	cfg.File = path

	logger.Debug("Config: %+v", cfg)
	return &cfg, nil
}

// loadEnvFile exports every MINIBUNDLE_* variable from path that the
// environment does not already define.
func loadEnvFile(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for key, value := range vars {
		if !strings.HasPrefix(key, EnvPrefix+"_") {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	logger.Debug(".env file loaded: %s", path)
	return nil
}

// FindUp returns the first config file found in dir or any of its parents.
func FindUp(fs afero.Fs, dir string) (string, bool) {
	current := dir
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(current, name)
			if info, err := fs.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Entry) == "" {
		errs = append(errs, errors.New("entry must not be empty"))
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		errs = append(errs, errors.New("output.dir must not be empty"))
	}
	if strings.TrimSpace(c.Output.File) == "" || strings.ContainsAny(c.Output.File, `/\`) {
		errs = append(errs, fmt.Errorf("output.file must be a plain file name, got %q", c.Output.File))
	}
	if c.Output.Minify && c.Output.Pretty {
		errs = append(errs, errors.New("output.minify and output.pretty are mutually exclusive"))
	}
	if _, err := ast.ParseTarget(c.Transform.Target); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DiscoverKinds(); err != nil {
		errs = append(errs, err)
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) == "" {
		errs = append(errs, errors.New("cache.dir must not be empty when the cache is enabled"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch.debounce must not be negative"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DiscoverKinds maps the discover list to import kinds.
func (c *Config) DiscoverKinds() ([]models.ImportKind, error) {
	kinds := make([]models.ImportKind, 0, len(c.Discover))
	for _, name := range c.Discover {
		kind, err := models.ParseImportKind(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

func (c *Config) EntryPath() string { return c.abs(c.Entry) }

func (c *Config) OutputDir() string { return c.abs(c.Output.Dir) }

func (c *Config) OutputPath() string { return filepath.Join(c.OutputDir(), c.Output.File) }

func (c *Config) CacheDir() string { return c.abs(c.Cache.Dir) }

// Write saves cfg as yaml at path. An existing file is only replaced with
// force.
func Write(fs afero.Fs, path string, cfg *Config, force bool) error {
	if _, err := fs.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
