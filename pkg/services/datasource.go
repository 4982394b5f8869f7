package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/apperrors"
	"github.com/sublyime/ingestion/pkg/events"
	"github.com/sublyime/ingestion/pkg/logging"
	"github.com/sublyime/ingestion/pkg/models"
	"github.com/sublyime/ingestion/pkg/repositories"
)

// MaxNameLength bounds data source names and property keys; both are VARCHAR(255) columns.
const MaxNameLength = 255

// DefaultQueryTimeout applies when the service is constructed without one.
const DefaultQueryTimeout = 30 * time.Second

// DataSourceInput is the caller-supplied state of a data source for create and update.
type DataSourceInput struct {
	Name         string
	SourceTypeID int64
	IsActive     bool
	Properties   []models.ConnectionProperty
}

// DataSourceService defines the interface for data source operations.
type DataSourceService interface {
	// Create validates in, stores it and returns the new id.
	Create(ctx context.Context, in DataSourceInput) (int64, error)

	// Get retrieves a data source with its connection properties.
	Get(ctx context.Context, id int64) (*models.DataSource, error)

	// List retrieves all data sources with their connection properties.
	List(ctx context.Context) ([]*models.DataSource, error)

	// Update replaces the data source's fields and its entire property set.
	Update(ctx context.Context, id int64, in DataSourceInput) error

	// Delete removes a data source and its properties.
	Delete(ctx context.Context, id int64) error
}

// SourceTypeService lists the source type catalog.
type SourceTypeService interface {
	List(ctx context.Context) ([]*models.SourceType, error)
}

type dataSourceService struct {
	repo         repositories.DataSourceRepository
	publisher    events.Publisher
	queryTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewDataSourceService creates a data source service with dependencies.
func NewDataSourceService(
	repo repositories.DataSourceRepository,
	publisher events.Publisher,
	queryTimeout time.Duration,
	logger *zap.Logger,
) DataSourceService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &dataSourceService{
		repo:         repo,
		publisher:    publisher,
		queryTimeout: queryTimeout,
		logger:       logger.Named("datasources"),
		now:          time.Now,
	}
}

func (s *dataSourceService) Create(ctx context.Context, in DataSourceInput) (int64, error) {
	if err := validateInput(in); err != nil {
		return 0, err
	}

	ds := &models.DataSource{
		Name:                 in.Name,
		SourceTypeID:         in.SourceTypeID,
		IsActive:             in.IsActive,
		ConnectionProperties: in.Properties,
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, ds); err != nil {
		return 0, err
	}

	s.logger.Info("Created data source",
		zap.Int64("data_source_id", ds.ID),
		zap.String("name", ds.Name),
		zap.Int64("source_type_id", ds.SourceTypeID),
		zap.Any("connection_properties", logging.RedactProperties(ds.PropertyMap())),
	)
	s.announce(ctx, events.OpCreated, ds.ID)

	return ds.ID, nil
}

func (s *dataSourceService) Get(ctx context.Context, id int64) (*models.DataSource, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.GetByID(ctx, id)
}

func (s *dataSourceService) List(ctx context.Context) ([]*models.DataSource, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.List(ctx)
}

func (s *dataSourceService) Update(ctx context.Context, id int64, in DataSourceInput) error {
	if err := validateInput(in); err != nil {
		return err
	}

	props := in.Properties
	if props == nil {
		props = []models.ConnectionProperty{}
	}
	ds := &models.DataSource{
		ID:                   id,
		Name:                 in.Name,
		SourceTypeID:         in.SourceTypeID,
		IsActive:             in.IsActive,
		ConnectionProperties: props,
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Update(ctx, ds); err != nil {
		return err
	}

	s.logger.Info("Updated data source",
		zap.Int64("data_source_id", id),
		zap.Bool("is_active", ds.IsActive),
		zap.Int("property_count", len(props)),
	)
	s.announce(ctx, events.OpUpdated, id)

	return nil
}

func (s *dataSourceService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Deleted data source", zap.Int64("data_source_id", id))
	s.announce(ctx, events.OpDeleted, id)

	return nil
}

// announce publishes a change that has already committed. Failures are only logged.
func (s *dataSourceService) announce(ctx context.Context, op events.Op, id int64) {
	event := events.ChangeEvent{Op: op, DataSourceID: id, At: s.now().UTC()}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("Failed to publish change event",
			zap.String("op", string(op)),
			zap.Int64("data_source_id", id),
			zap.Error(err))
	}
}

func validateInput(in DataSourceInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.Validation("name must not be blank")
	}
	if utf8.RuneCountInString(in.Name) > MaxNameLength {
		return apperrors.Validationf("name must be at most %d characters", MaxNameLength)
	}
	if in.SourceTypeID <= 0 {
		return apperrors.Validation("source_type_id must be a positive integer")
	}

	seen := make(map[string]struct{}, len(in.Properties))
	for _, p := range in.Properties {
		if strings.TrimSpace(p.Key) == "" {
			return apperrors.Validation("connection property key must not be blank")
		}
		if utf8.RuneCountInString(p.Key) > MaxNameLength {
			return apperrors.Validationf("connection property key must be at most %d characters", MaxNameLength)
		}
		if _, dup := seen[p.Key]; dup {
			return apperrors.Validationf("connection property key %q is duplicated", p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	return nil
}

type sourceTypeService struct {
	repo         repositories.SourceTypeRepository
	queryTimeout time.Duration
}

// NewSourceTypeService creates a source type service.
func NewSourceTypeService(repo repositories.SourceTypeRepository, queryTimeout time.Duration) SourceTypeService {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &sourceTypeService{repo: repo, queryTimeout: queryTimeout}
}

func (s *sourceTypeService) List(ctx context.Context) ([]*models.SourceType, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.List(ctx)
}

var (
	_ DataSourceService = (*dataSourceService)(nil)
	_ SourceTypeService = (*sourceTypeService)(nil)
)
