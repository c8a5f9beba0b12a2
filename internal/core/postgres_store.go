package core

import (
	"breedcore/internal/infra/persistence/postgres"
)

// NewPostgresStore constructs a Postgres-backed plan store from the provided DSN.
func NewPostgresStore(dsn string, engine *RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(dsn, engine)
}
