package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"

	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// LoadOptions selects the layers merged by Load.
type LoadOptions struct {
	// Store is the config file layer. Nil skips it.
	Store driven.ConfigStore

	// Environ replaces the process environment when non-nil.
	Environ map[string]string

	// Overrides is the command-line layer, applied last.
	Overrides *Config
}

// devTokenEnv reads the token variable shared with other Evernote tools.
type devTokenEnv struct {
	Token string `env:"EVERNOTE_DEV_TOKEN"`
}

// Load merges defaults, the config file, the environment and overrides.
// A later layer wins for every field it sets to a non-zero value.
func Load(opts LoadOptions) (*Config, error) {
	b := newBuilder().withDefaults()
	if opts.Store != nil {
		b = b.withStore(opts.Store)
	}
	b = b.withEnv(opts.Environ)
	if opts.Overrides != nil {
		b = b.with(opts.Overrides)
	}
	return b.build()
}

type builder struct {
	configs []*Config
	err     error
}

func newBuilder() *builder {
	return &builder{
		configs: make([]*Config, 0, 5),
	}
}

func (b *builder) build() (*Config, error) {
	if b.err != nil {
		return nil, fmt.Errorf("building config: %w", b.err)
	}

	cfg := new(Config)
	for _, layer := range b.configs {
		if err := mergo.Merge(cfg, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (b *builder) withDefaults() *builder {
	defaults := Defaults()
	return b.with(&defaults)
}

func (b *builder) withStore(store driven.ConfigStore) *builder {
	return b.with(fromStore(store))
}

func (b *builder) withEnv(environ map[string]string) *builder {
	legacy := &devTokenEnv{}
	if err := env.ParseWithOptions(legacy, env.Options{Environment: environ}); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("reading environment: %w", err))
		return b
	}
	b.configs = append(b.configs, &Config{Auth: Auth{Token: legacy.Token}})

	envCfg := &Config{}
	if err := env.ParseWithOptions(envCfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("reading environment: %w", err))
		return b
	}
	return b.with(envCfg)
}

func (b *builder) with(cfg *Config) *builder {
	b.configs = append(b.configs, cfg)
	return b
}
