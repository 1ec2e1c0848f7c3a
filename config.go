package main

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lotas/wegweiser/internal/dataset"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "WEGWEISER"

	cfgKeySource      = "source"
	cfgKeyDataDir     = "data_dir"
	cfgKeyPort        = "port"
	cfgKeyObserver    = "observer"
	cfgKeyConcurrency = "concurrency"

	defaultPort        = 19292
	defaultConcurrency = 4
)

// Config is the resolved configuration: flags over WEGWEISER_* environment
// over config.yaml over defaults.
type Config struct {
	Source      string
	DataDir     string
	Port        int
	Observer    bool
	Concurrency int
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error. Flags present in flags are bound over file and environment values.
func loadConfig(configDir string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeySource, dataset.DefaultSource)
	v.SetDefault(cfgKeyPort, defaultPort)
	v.SetDefault(cfgKeyObserver, false)
	v.SetDefault(cfgKeyConcurrency, defaultConcurrency)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for _, name := range []string{cfgKeySource, cfgKeyPort, cfgKeyObserver, cfgKeyConcurrency} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(name, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func configFrom(v *viper.Viper, dataDir string) Config {
	return Config{
		Source:      v.GetString(cfgKeySource),
		DataDir:     dataDir,
		Port:        v.GetInt(cfgKeyPort),
		Observer:    v.GetBool(cfgKeyObserver),
		Concurrency: v.GetInt(cfgKeyConcurrency),
	}
}
