package models

import "time"

// SourceType is a read-only catalog entry describing a category of data source.
// Rows are seeded outside this service.
type SourceType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// DataSource is a named ingestion origin of one SourceType. It exclusively owns its
// ConnectionProperties; the set lives and dies with the row.
type DataSource struct {
	ID                   int64                `json:"id"`
	Name                 string               `json:"name"`
	SourceTypeID         int64                `json:"source_type_id"`
	IsActive             bool                 `json:"is_active"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	ConnectionProperties []ConnectionProperty `json:"connection_properties"`
}

// ConnectionProperty is one key/value configuration item of a DataSource.
// Its identity is (DataSourceID, Key); a DataSource's properties form an unordered set.
type ConnectionProperty struct {
	DataSourceID int64  `json:"-"`
	Key          string `json:"property_key"`
	Value        string `json:"property_value"`
}

// PropertyMap returns the properties keyed by property key.
func (ds *DataSource) PropertyMap() map[string]string {
	m := make(map[string]string, len(ds.ConnectionProperties))
	for _, p := range ds.ConnectionProperties {
		m[p.Key] = p.Value
	}
	return m
}
