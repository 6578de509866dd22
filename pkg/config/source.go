package config

import (
	"sync"

	"github.com/tripcraft/tripgen/pkg/logger"
	"github.com/tripcraft/tripgen/pkg/models"
)

// BudgetSource serves the budget policy from a config file. Environment
// overrides are re-applied on every read and Reload re-reads the file, so
// limits can change between requests without a restart.
type BudgetSource struct {
	path string

	mu   sync.RWMutex
	base models.BudgetPolicy
}

// NewBudgetSource starts from cfg and reloads from path on Reload.
func NewBudgetSource(path string, cfg *Config) *BudgetSource {
	return &BudgetSource{path: path, base: cfg.Budget}
}

// Policy returns the current policy with env overrides applied. A malformed
// override is logged and ignored.
func (s *BudgetSource) Policy() models.BudgetPolicy {
	s.mu.RLock()
	p := s.base
	s.mu.RUnlock()

	out, err := ApplyBudgetEnv(p)
	if err != nil {
		logger.Get().Warnw("ignoring budget env override", "error", err)
		return p
	}
	return out
}

// Reload re-reads the config file. On error the previous policy is kept.
func (s *BudgetSource) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.base = cfg.Budget
	s.mu.Unlock()
	return nil
}
