package config

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "native", cfg.Engine.Backend)
	assert.Equal(t, 8, cfg.Engine.ReadConcurrency)
	assert.Equal(t, 8, cfg.Engine.ParseConcurrency)
	assert.Equal(t, 0.3, cfg.Analysis.MinConfidence)
	assert.Equal(t, 0.3, cfg.Analysis.GuardPenalty)
	assert.Equal(t, 0.2, cfg.Analysis.ValidationPenalty)
	assert.Equal(t, 0.1, cfg.Analysis.CrossFilePenalty)
	assert.Equal(t, 0.4, cfg.Analysis.UnknownCallWeight)
	assert.Equal(t, "auto", cfg.Rules.Framework)
	assert.Empty(t, cfg.Rules.File)

	assert.NoError(t, cfg.Validate(), "defaults must validate")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Engine.Backend = "llvm" },
			wantErr: "engine.backend",
		},
		{
			name:    "zero read concurrency",
			mutate:  func(c *Config) { c.Engine.ReadConcurrency = 0 },
			wantErr: "engine.read_concurrency",
		},
		{
			name:    "negative parse concurrency",
			mutate:  func(c *Config) { c.Engine.ParseConcurrency = -2 },
			wantErr: "engine.parse_concurrency",
		},
		{
			name:    "min confidence above one",
			mutate:  func(c *Config) { c.Analysis.MinConfidence = 1.5 },
			wantErr: "min_confidence",
		},
		{
			name:    "negative guard penalty",
			mutate:  func(c *Config) { c.Analysis.GuardPenalty = -0.1 },
			wantErr: "guard_penalty",
		},
		{
			name:    "unknown call weight above one",
			mutate:  func(c *Config) { c.Analysis.UnknownCallWeight = 2 },
			wantErr: "unknown_call_weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml values override defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")

		yaml := []byte(`
engine:
  backend: treesitter
  read_concurrency: 2
analysis:
  min_confidence: 0.5
rules:
  framework: wordpress
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yaml)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "treesitter", cfg.Engine.Backend)
		assert.Equal(t, 2, cfg.Engine.ReadConcurrency)
		assert.Equal(t, 8, cfg.Engine.ParseConcurrency, "unset values keep defaults")
		assert.Equal(t, 0.5, cfg.Analysis.MinConfidence)
		assert.Equal(t, "wordpress", cfg.Rules.Framework)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("engine.backend", "bogus")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.backend")
	})

	t.Run("rules file path is tilde-expanded", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("rules.file", "~/rules.yaml")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.NotContains(t, cfg.Rules.File, "~")
		assert.Contains(t, cfg.Rules.File, "rules.yaml")
	})
}
