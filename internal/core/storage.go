package core

import (
	"fmt"
	"os"

	"breedcore/internal/infra/persistence/memory"
	"breedcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageConfig selects and configures a persistent store.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// StorageConfigFromEnv reads the storage selection from the environment.
//
//	BREEDCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	BREEDCORE_SQLITE_PATH: path to sqlite file (default ./breedcore.db)
//	BREEDCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Driver:      StorageDriver(os.Getenv("BREEDCORE_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("BREEDCORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("BREEDCORE_POSTGRES_DSN"),
	}
}

// OpenPersistentStore opens the backend named by cfg. Defaults to sqlite when
// no driver is set.
func OpenPersistentStore(cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := NewPostgresStore(cfg.PostgresDSN, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
