package repositories

import (
	"context"

	"github.com/sublyime/ingestion/pkg/database"
	"github.com/sublyime/ingestion/pkg/models"
)

// SourceTypeRepository reads the source type catalog.
type SourceTypeRepository interface {
	// List returns every source type in store order. Never nil.
	List(ctx context.Context) ([]*models.SourceType, error)
}

type sourceTypeRepository struct {
	pools database.Acquirer
}

// NewSourceTypeRepository creates a source type repository backed by the shared pool.
func NewSourceTypeRepository(pools database.Acquirer) SourceTypeRepository {
	return &sourceTypeRepository{pools: pools}
}

func (r *sourceTypeRepository) List(ctx context.Context) ([]*models.SourceType, error) {
	pool, err := r.pools.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, selectSourceTypes)
	if err != nil {
		return nil, database.Classify("list source types", err)
	}
	defer rows.Close()

	sourceTypes := make([]*models.SourceType, 0)
	for rows.Next() {
		var st models.SourceType
		if err := rows.Scan(&st.ID, &st.Name, &st.Description); err != nil {
			return nil, err
		}
		sourceTypes = append(sourceTypes, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sourceTypes, nil
}

var _ SourceTypeRepository = (*sourceTypeRepository)(nil)
