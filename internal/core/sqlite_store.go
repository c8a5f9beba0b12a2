package core

import "breedcore/internal/infra/persistence/sqlite"

// NewSQLiteStore constructs a SQLite-backed plan store at path (empty for the
// default file) evaluating writes with engine.
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}
