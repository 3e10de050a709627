// Package config resolves bir settings from, in increasing precedence,
// built-in defaults, a config file, BIR_* environment variables and
// command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/bir/internal/vm"
)

// EnvPrefix is prepended to every environment variable, e.g.
// BIR_MAX_CALL_DEPTH for the max-call-depth key.
const EnvPrefix = "BIR"

// Keys understood in config files, as env suffixes and as flag names.
const (
	KeyMaxCallDepth = "max-call-depth"
	KeyMemorySize   = "memory-size"
	KeyTarget       = "target"
	KeyDB           = "db"
	KeyNoColor      = "no-color"
	KeyVerbose      = "verbose"
	KeyFormat       = "format"
)

// DefaultTarget is the target used when none is configured.
const DefaultTarget = "bytecode"

// minMemorySize leaves room for the null guard and at least one frame.
const minMemorySize = 64

// Config is the resolved configuration.
type Config struct {
	MaxCallDepth int
	MemorySize   uint64
	Target       string
	DB           string
	NoColor      bool
	Verbose      bool
	Format       string
}

// New returns a viper instance with defaults applied and BIR_* environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyMaxCallDepth, vm.DefaultMaxCallDepth)
	v.SetDefault(KeyMemorySize, vm.DefaultMemorySize)
	v.SetDefault(KeyTarget, DefaultTarget)
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyFormat, "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags makes flags in fs override the file and environment for any
// key they share a name with. Flags that are not keys are ignored.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range []string{KeyMaxCallDepth, KeyMemorySize, KeyTarget, KeyDB, KeyNoColor, KeyVerbose, KeyFormat} {
		f := fs.Lookup(key)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// ReadFile merges the config file at path into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Resolve reads the effective settings out of v and validates them.
func Resolve(v *viper.Viper) (Config, error) {
	cfg := Config{
		MaxCallDepth: v.GetInt(KeyMaxCallDepth),
		MemorySize:   v.GetUint64(KeyMemorySize),
		Target:       v.GetString(KeyTarget),
		DB:           v.GetString(KeyDB),
		NoColor:      v.GetBool(KeyNoColor),
		Verbose:      v.GetBool(KeyVerbose),
		Format:       strings.ToLower(v.GetString(KeyFormat)),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.MaxCallDepth <= 0 {
		result = multierror.Append(result, fmt.Errorf("%s must be positive, got %d", KeyMaxCallDepth, c.MaxCallDepth))
	}
	if c.MemorySize < minMemorySize {
		result = multierror.Append(result, fmt.Errorf("%s must be at least %d, got %d", KeyMemorySize, minMemorySize, c.MemorySize))
	}
	if c.Target == "" {
		result = multierror.Append(result, fmt.Errorf("%s must not be empty", KeyTarget))
	}
	if c.Format != "text" && c.Format != "json" {
		result = multierror.Append(result, fmt.Errorf("%s must be text or json, got %q", KeyFormat, c.Format))
	}
	return result.ErrorOrNil()
}

// VMOptions returns the interpreter options implied by c.
func (c Config) VMOptions() []vm.Option {
	return []vm.Option{
		vm.WithMaxCallDepth(c.MaxCallDepth),
		vm.WithMemorySize(c.MemorySize),
	}
}
