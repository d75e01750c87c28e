package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/chatguard/internal/adapters/store"
	"github.com/mikey/chatguard/internal/config"
	"go.uber.org/zap"
)

// StoreFactory creates session stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a store based on the configuration
func (f *StoreFactory) CreateStore() (store.Store, error) {
	storeCfg, err := f.cfg.GetStore()
	if err != nil {
		return nil, err
	}
	logger := f.logger.Named("store")

	switch storeCfg.Type {
	case "memory":
		return store.NewMemoryStore(logger, storeCfg.LogRetention, storeCfg.CleanupFrequency, storeCfg.LogBuffer), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(storeCfg.SQLitePath, logger, storeCfg.LogRetention, storeCfg.CleanupFrequency, storeCfg.LogBuffer)
	case "mysql":
		return store.NewMySQLStore(storeCfg.MySQLDSN, logger, storeCfg.LogRetention, storeCfg.CleanupFrequency, storeCfg.LogBuffer)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
