package repository

import (
	"fmt"

	"github.com/yourusername/graphtrader/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Bars      BarRepository
	Documents DocumentRepository
	Runs      RunRepository
	Archive   BarArchive // nil when the ClickHouse archive is disabled
}

// NewRepositories creates and returns all repository implementations. The
// ClickHouse connection is optional.
func NewRepositories(db *database.DB, ch *database.ClickHouseDB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	repos := &Repositories{
		Bars:      NewPostgresBarRepository(db),
		Documents: NewPostgresDocumentRepository(db),
		Runs:      NewPostgresRunRepository(db),
	}
	if ch != nil {
		repos.Archive = NewClickHouseBarArchive(ch)
	}
	return repos, nil
}
