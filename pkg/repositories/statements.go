package repositories

import "github.com/sublyime/ingestion/pkg/database"

// statements holds the SQL that differs between drivers. Placeholders are always $n;
// the SQL Server pool rebinds them.
//
// Locking protocol: every operation that touches a data source's properties first locks the
// parent row. Writers take an exclusive (update) lock, readers a shared lock, so a reader
// either sees the property set from before a replace or the one after it, never the gap.
type statements struct {
	insertDataSource string
	lockDataSource   string
	getDataSource    string
	listDataSources  string
	updateDataSource string
}

const dataSourceColumns = `id, name, source_type_id, is_active, created_at, updated_at`

var postgresStatements = statements{
	insertDataSource: `
		INSERT INTO data_sources (name, source_type_id, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
	lockDataSource: `SELECT id FROM data_sources WHERE id = $1 FOR UPDATE`,
	getDataSource: `
		SELECT ` + dataSourceColumns + `
		FROM data_sources
		WHERE id = $1
		FOR SHARE`,
	listDataSources: `
		SELECT ` + dataSourceColumns + `
		FROM data_sources
		FOR SHARE`,
	updateDataSource: `
		UPDATE data_sources
		SET name = $2, source_type_id = $3, is_active = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
}

var sqlServerStatements = statements{
	insertDataSource: `
		INSERT INTO data_sources (name, source_type_id, is_active)
		OUTPUT INSERTED.id, INSERTED.created_at, INSERTED.updated_at
		VALUES ($1, $2, $3)`,
	lockDataSource: `SELECT id FROM data_sources WITH (UPDLOCK, ROWLOCK) WHERE id = $1`,
	getDataSource: `
		SELECT ` + dataSourceColumns + `
		FROM data_sources WITH (HOLDLOCK, ROWLOCK)
		WHERE id = $1`,
	listDataSources: `
		SELECT ` + dataSourceColumns + `
		FROM data_sources WITH (HOLDLOCK)`,
	updateDataSource: `
		UPDATE data_sources
		SET name = $2, source_type_id = $3, is_active = $4, updated_at = SYSUTCDATETIME()
		WHERE id = $1`,
}

// Driver-independent statements.
const (
	selectSourceTypes = `SELECT id, name, description FROM source_types`

	selectProperties = `
		SELECT data_source_id, property_key, property_value
		FROM connection_properties
		WHERE data_source_id = $1`

	insertProperty = `
		INSERT INTO connection_properties (data_source_id, property_key, property_value)
		VALUES ($1, $2, $3)`

	deleteProperties = `DELETE FROM connection_properties WHERE data_source_id = $1`

	deleteDataSource = `DELETE FROM data_sources WHERE id = $1`
)

func statementsFor(driver database.Driver) statements {
	if driver == database.DriverSQLServer {
		return sqlServerStatements
	}
	return postgresStatements
}
