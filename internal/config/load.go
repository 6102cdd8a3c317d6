package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadOptions controls where Load reads configuration from.
type LoadOptions struct {
	// File is an explicit config file. When set, it must exist.
	File string
	// SearchPaths are directories searched for settle.yaml when File is empty.
	// Defaults to the working directory and ConfigDir().
	SearchPaths []string
	// Flags maps config keys to command-line flags. A flag only overrides
	// the key when it was set on the command line.
	Flags map[string]*pflag.Flag
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeysFromSchema(v)
	SetDefaults(v)
	return v
}

// bindEnvKeysFromSchema walks Config via reflection and binds every leaf
// mapstructure path to its SETTLE_* variable, so AutomaticEnv-style lookups
// also work for keys that are absent from the config file.
func bindEnvKeysFromSchema(v *viper.Viper) {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range collectLeafPaths(reflect.TypeOf(Config{}), "") {
		envVar := EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("config: BindEnv(%q, %q) failed: %v", key, envVar, err))
		}
	}
}

// collectLeafPaths returns the dotted mapstructure path of every leaf field.
func collectLeafPaths(t reflect.Type, prefix string) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var paths []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		fullPath := tag
		if prefix != "" {
			fullPath = prefix + "." + tag
		}

		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Duration(0)) {
			paths = append(paths, collectLeafPaths(ft, fullPath)...)
			continue
		}
		paths = append(paths, fullPath)
	}
	return paths
}

// Keys returns every configuration key in dotted form, in schema order.
func Keys() []string {
	return collectLeafPaths(reflect.TypeOf(Config{}), "")
}

// Load reads configuration with precedence flags > environment > file > defaults,
// and validates the result.
func Load(opts LoadOptions) (*Config, string, error) {
	v := newViper()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		paths := opts.SearchPaths
		if len(paths) == 0 {
			paths = []string{"."}
			if dir, err := ConfigDir(); err == nil {
				paths = append(paths, dir)
			}
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("reading config: %w", err)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, "", fmt.Errorf("binding flag --%s to %s: %w", flag.Name, key, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
