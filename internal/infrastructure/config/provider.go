package config

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/platewise/v2/internal/domain/suggestion"
)

// Provider publishes immutable algorithm config snapshots. Readers get a
// value copy, so a snapshot can never change under a request that already
// holds it; updates swap the pointer and bump the version.
type Provider struct {
	current atomic.Pointer[suggestion.AlgorithmConfig]
	version atomic.Uint64
	logger  *zap.Logger
}

// NewProvider creates a provider seeded with the engine configuration.
func NewProvider(engine EngineConfig, logger *zap.Logger) (*Provider, error) {
	p := &Provider{
		logger: logger.Named("config-provider"),
	}
	if err := p.Publish(engine.ToAlgorithmConfig()); err != nil {
		return nil, err
	}
	return p, nil
}

// GetAlgorithmConfig returns the current snapshot.
func (p *Provider) GetAlgorithmConfig() suggestion.AlgorithmConfig {
	return *p.current.Load()
}

// Publish validates and installs a new snapshot. Invalid snapshots are
// rejected and the previous one keeps serving.
func (p *Provider) Publish(cfg suggestion.AlgorithmConfig) error {
	if err := cfg.Validate(); err != nil {
		p.logger.Error("Rejected invalid algorithm config", zap.Error(err))
		return err
	}

	cfg.Version = p.version.Add(1)
	p.current.Store(&cfg)

	p.logger.Info("Published algorithm config",
		zap.Uint64("version", cfg.Version),
		zap.Int("max_suggestions", cfg.Limits.MaxSuggestions),
		zap.Int("recent_exclusion_days", cfg.Limits.RecentExclusionDays),
	)
	return nil
}

// Version returns the currently published snapshot version.
func (p *Provider) Version() uint64 {
	return p.version.Load()
}
