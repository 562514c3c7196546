// Package config loads settings for the demo binary. Values come from, in
// increasing priority: built-in defaults, an optional config file,
// RWSTORE_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aradilov/rwstore/internal/drive"
)

const envPrefix = "RWSTORE"

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Run drive.Config `mapstructure:"run"`
	Log Log          `mapstructure:"log"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	Production bool   `mapstructure:"production"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"readers":        "run.readers",
	"writes":         "run.writes",
	"max-spin":       "run.max_spin",
	"sentinel":       "run.sentinel",
	"baseline":       "run.baseline",
	"log-level":      "log.level",
	"log-production": "log.production",
}

// Flags returns the flag set understood by Load.
func Flags(name string) *pflag.FlagSet {
	d := drive.DefaultConfig()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a yaml, json or toml config file")
	fs.Int("readers", d.Readers, "number of reader goroutines")
	fs.Int("writes", d.Writes, "number of sequence values to publish before the sentinel")
	fs.Int("max-spin", d.MaxSpin, "upper bound of the busy loop after every read")
	fs.String("sentinel", d.Sentinel, "value that tells readers to stop")
	fs.Bool("baseline", d.Baseline, "use the RWMutex store instead of the wait-free one")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Bool("log-production", false, "JSON logs instead of the console encoder")
	return fs
}

// Load resolves the configuration. fs may be nil; if it carries a --config
// value that file is read.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if path, err := fs.GetString("config"); err == nil && path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := drive.DefaultConfig()
	v.SetDefault("run.readers", d.Readers)
	v.SetDefault("run.writes", d.Writes)
	v.SetDefault("run.max_spin", d.MaxSpin)
	v.SetDefault("run.sentinel", d.Sentinel)
	v.SetDefault("run.baseline", d.Baseline)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.production", false)
}

func (c Config) Validate() error {
	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalid, err)
	}
	return nil
}

// Logger builds the zap logger described by l.
func (l Log) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if l.Production {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
