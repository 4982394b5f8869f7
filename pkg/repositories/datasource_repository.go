package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/sublyime/ingestion/pkg/apperrors"
	"github.com/sublyime/ingestion/pkg/database"
	"github.com/sublyime/ingestion/pkg/models"
)

// DataSourceRepository persists data sources together with their connection properties.
// Every method runs in one transaction: a data source and its property set are written,
// replaced, removed and read as a unit.
type DataSourceRepository interface {
	// Create inserts ds and its properties, then sets ds.ID and the store timestamps.
	Create(ctx context.Context, ds *models.DataSource) error

	// GetByID returns the data source with its properties, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.DataSource, error)

	// List returns every data source with its properties in store order. Never nil.
	// Properties are loaded with one query per data source.
	List(ctx context.Context) ([]*models.DataSource, error)

	// Update overwrites the scalar fields of ds.ID and replaces its whole property set
	// with ds.ConnectionProperties. Returns apperrors.ErrNotFound if the row is absent.
	Update(ctx context.Context, ds *models.DataSource) error

	// Delete removes the data source and its properties, or returns apperrors.ErrNotFound.
	Delete(ctx context.Context, id int64) error

	// ListProperties returns the properties stored for id; empty when id has none or is gone.
	ListProperties(ctx context.Context, id int64) ([]models.ConnectionProperty, error)
}

type dataSourceRepository struct {
	pools database.Acquirer
}

// NewDataSourceRepository creates a data source repository backed by the shared pool.
func NewDataSourceRepository(pools database.Acquirer) DataSourceRepository {
	return &dataSourceRepository{pools: pools}
}

func (r *dataSourceRepository) Create(ctx context.Context, ds *models.DataSource) error {
	pool, err := r.pools.Acquire(ctx)
	if err != nil {
		return err
	}
	stmts := statementsFor(pool.Driver())

	err = database.WithTx(ctx, pool, func(tx database.Tx) error {
		err := tx.QueryRow(ctx, stmts.insertDataSource, ds.Name, ds.SourceTypeID, ds.IsActive).
			Scan(&ds.ID, &ds.CreatedAt, &ds.UpdatedAt)
		if err != nil {
			return database.Classify("insert data source", err)
		}
		return insertProperties(ctx, tx, ds.ID, ds.ConnectionProperties)
	})
	if err != nil {
		ds.ID = 0
		return fmt.Errorf("failed to create data source: %w", err)
	}

	for i := range ds.ConnectionProperties {
		ds.ConnectionProperties[i].DataSourceID = ds.ID
	}
	return nil
}

func (r *dataSourceRepository) GetByID(ctx context.Context, id int64) (*models.DataSource, error) {
	pool, err := r.pools.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	stmts := statementsFor(pool.Driver())

	var ds *models.DataSource
	err = database.WithTx(ctx, pool, func(tx database.Tx) error {
		ds = &models.DataSource{}
		err := tx.QueryRow(ctx, stmts.getDataSource, id).Scan(
			&ds.ID,
			&ds.Name,
			&ds.SourceTypeID,
			&ds.IsActive,
			&ds.CreatedAt,
			&ds.UpdatedAt,
		)
		if errors.Is(err, database.ErrNoRows) {
			return notFound("get data source", id)
		}
		if err != nil {
			return err
		}

		ds.ConnectionProperties, err = selectPropertySet(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ds, nil
}

func (r *dataSourceRepository) List(ctx context.Context) ([]*models.DataSource, error) {
	pool, err := r.pools.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	stmts := statementsFor(pool.Driver())

	var dataSources []*models.DataSource
	err = database.WithTx(ctx, pool, func(tx database.Tx) error {
		dataSources, err = scanDataSources(ctx, tx, stmts.listDataSources)
		if err != nil {
			return err
		}
		for _, ds := range dataSources {
			ds.ConnectionProperties, err = selectPropertySet(ctx, tx, ds.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}

	return dataSources, nil
}

func (r *dataSourceRepository) Update(ctx context.Context, ds *models.DataSource) error {
	pool, err := r.pools.Acquire(ctx)
	if err != nil {
		return err
	}
	stmts := statementsFor(pool.Driver())

	return database.WithTx(ctx, pool, func(tx database.Tx) error {
		// The UPDATE takes the parent row lock before the property set is touched.
		affected, err := tx.Exec(ctx, stmts.updateDataSource, ds.ID, ds.Name, ds.SourceTypeID, ds.IsActive)
		if err != nil {
			return fmt.Errorf("failed to update data source: %w", err)
		}
		if affected == 0 {
			return notFound("update data source", ds.ID)
		}

		if _, err := tx.Exec(ctx, deleteProperties, ds.ID); err != nil {
			return fmt.Errorf("failed to clear connection properties: %w", err)
		}
		return insertProperties(ctx, tx, ds.ID, ds.ConnectionProperties)
	})
}

func (r *dataSourceRepository) Delete(ctx context.Context, id int64) error {
	pool, err := r.pools.Acquire(ctx)
	if err != nil {
		return err
	}
	stmts := statementsFor(pool.Driver())

	return database.WithTx(ctx, pool, func(tx database.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx, stmts.lockDataSource, id).Scan(&locked)
		if errors.Is(err, database.ErrNoRows) {
			return notFound("delete data source", id)
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, deleteProperties, id); err != nil {
			return fmt.Errorf("failed to delete connection properties: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteDataSource, id); err != nil {
			return fmt.Errorf("failed to delete data source: %w", err)
		}
		return nil
	})
}

func (r *dataSourceRepository) ListProperties(ctx context.Context, id int64) ([]models.ConnectionProperty, error) {
	pool, err := r.pools.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return selectPropertySet(ctx, pool, id)
}

func scanDataSources(ctx context.Context, q database.Querier, query string) ([]*models.DataSource, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dataSources := make([]*models.DataSource, 0)
	for rows.Next() {
		var ds models.DataSource
		if err := rows.Scan(
			&ds.ID,
			&ds.Name,
			&ds.SourceTypeID,
			&ds.IsActive,
			&ds.CreatedAt,
			&ds.UpdatedAt,
		); err != nil {
			return nil, err
		}
		dataSources = append(dataSources, &ds)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dataSources, nil
}

func selectPropertySet(ctx context.Context, q database.Querier, id int64) ([]models.ConnectionProperty, error) {
	rows, err := q.Query(ctx, selectProperties, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection properties: %w", err)
	}
	defer rows.Close()

	props := make([]models.ConnectionProperty, 0)
	for rows.Next() {
		var p models.ConnectionProperty
		if err := rows.Scan(&p.DataSourceID, &p.Key, &p.Value); err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return props, nil
}

func insertProperties(ctx context.Context, tx database.Tx, id int64, props []models.ConnectionProperty) error {
	for _, p := range props {
		if _, err := tx.Exec(ctx, insertProperty, id, p.Key, p.Value); err != nil {
			return fmt.Errorf("failed to insert connection property %q: %w", p.Key, err)
		}
	}
	return nil
}

func notFound(op string, id int64) error {
	return apperrors.NotFound(op, fmt.Sprintf("data source %d not found", id))
}

var _ DataSourceRepository = (*dataSourceRepository)(nil)
