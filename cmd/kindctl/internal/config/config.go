package config

import (
	"context"

	"github.com/Dannaccb/be-kind/cmd/kindctl/internal/client"
)

type contextKey string

const configKey contextKey = "kindctl-config"

// GlobalConfig holds shared configuration for all kindctl commands.
// The root command injects it in PersistentPreRunE.
type GlobalConfig struct {
	APIURL         string
	AuthURL        string
	NonInteractive bool
	ClientProvider *client.Provider
}

// InjectConfig adds config to the cobra command context.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from the cobra command context.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext retrieves config from context or panics.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("kindctl: config not found in context - this is a bug in kindctl")
	}
	return cfg
}
