package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/models"
	"github.com/sublyime/ingestion/pkg/services"
)

// mockDataSourceService is a configurable mock for handler tests.
type mockDataSourceService struct {
	dataSource  *models.DataSource
	dataSources []*models.DataSource
	createdID   int64
	err         error

	// Captured inputs
	capturedID    int64
	capturedInput *services.DataSourceInput
	calls         int
}

func (m *mockDataSourceService) Create(ctx context.Context, in services.DataSourceInput) (int64, error) {
	m.calls++
	m.capturedInput = &in
	if m.err != nil {
		return 0, m.err
	}
	return m.createdID, nil
}

func (m *mockDataSourceService) Get(ctx context.Context, id int64) (*models.DataSource, error) {
	m.calls++
	m.capturedID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.dataSource, nil
}

func (m *mockDataSourceService) List(ctx context.Context) ([]*models.DataSource, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.dataSources, nil
}

func (m *mockDataSourceService) Update(ctx context.Context, id int64, in services.DataSourceInput) error {
	m.calls++
	m.capturedID = id
	m.capturedInput = &in
	return m.err
}

func (m *mockDataSourceService) Delete(ctx context.Context, id int64) error {
	m.calls++
	m.capturedID = id
	return m.err
}

type mockSourceTypeService struct {
	sourceTypes []*models.SourceType
	err         error
}

func (m *mockSourceTypeService) List(ctx context.Context) ([]*models.SourceType, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sourceTypes, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

// newTestMux wires the data source and source type handlers the way main does.
func newTestMux(ds services.DataSourceService, st services.SourceTypeService) *http.ServeMux {
	mux := http.NewServeMux()
	NewDataSourcesHandler(ds, zap.NewNop()).RegisterRoutes(mux)
	NewSourceTypesHandler(st, zap.NewNop()).RegisterRoutes(mux)
	return mux
}
