package commands

import (
	"context"
	"fmt"

	"github.com/hooplab/goatindex/internal/contracts"
	"github.com/hooplab/goatindex/internal/lake"
	"github.com/hooplab/goatindex/internal/pipeline"
	"github.com/hooplab/goatindex/internal/scoring"
	"github.com/hooplab/goatindex/internal/validation"
	"github.com/hooplab/goatindex/pkg/config"
	"github.com/hooplab/goatindex/pkg/logger"
	"github.com/hooplab/goatindex/pkg/redis"
	"github.com/hooplab/goatindex/pkg/storage"
)

// app bundles the wired components every command needs. Wiring happens
// once per invocation: config decides the storage backend, the ruleset
// and the weight vector; nothing is selected per call.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	store  storage.Store
	rcli   *redis.Client
	lake   *lake.Manager
	runner *pipeline.Runner
}

// setup loads config and wires storage, cache, lake manager, scoring
// engine and pipeline runner.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	rcli, err := redis.New(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	cache := redis.NewCache(rcli, "goatindex")

	silver, err := silverRuleset(cfg)
	if err != nil {
		store.Close()
		rcli.Close()
		return nil, err
	}

	manager := lake.NewManager(store, map[contracts.Tier]*validation.Ruleset{
		contracts.TierSilver: silver,
	}, cache, cfg.Storage.Timeout, log)

	weights, err := scoringWeights(cfg)
	if err != nil {
		store.Close()
		rcli.Close()
		return nil, err
	}

	rescaler, err := scoring.NewRescaler(cfg.Scoring.Rescale)
	if err != nil {
		store.Close()
		rcli.Close()
		return nil, err
	}

	scorer := scoring.NewEngine(weights, cfg.Cohort.MinSize, rescaler, log)

	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		rcli:   rcli,
		lake:   manager,
		runner: pipeline.NewRunner(manager, scorer, log),
	}, nil
}

// close releases backend connections.
func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.rcli != nil {
		a.rcli.Close()
	}
}

// silverRuleset loads the configured ruleset or falls back to the
// built-in one.
func silverRuleset(cfg *config.Config) (*validation.Ruleset, error) {
	if cfg.SilverRuleset == "" {
		return validation.DefaultSilver(cfg.Cohort.MinSize), nil
	}
	rs, err := validation.Load(cfg.SilverRuleset)
	if err != nil {
		return nil, fmt.Errorf("load silver ruleset: %w", err)
	}
	return rs, nil
}

// scoringWeights loads the configured weight vector or falls back to the
// built-in one.
func scoringWeights(cfg *config.Config) (*scoring.Weights, error) {
	if cfg.Scoring.WeightsFile == "" {
		return scoring.DefaultWeights(), nil
	}
	w, err := scoring.LoadWeights(cfg.Scoring.WeightsFile)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	return w, nil
}
