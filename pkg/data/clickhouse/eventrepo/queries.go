package eventrepo

const (
	// eventColumns is the column list for the events table (10 columns)
	eventColumns = `id, source_app, source_chain, timestamp, event_type, data,
		transaction_hash, block_height, severity, content_hash`

	// eventValuesPlaceholders is the VALUES placeholder string for events (10 placeholders)
	eventValuesPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?`
)

// EventInsertQuery returns the INSERT query for the events table with VALUES clause
func EventInsertQuery(tableName string) string {
	return `INSERT INTO ` + tableName + ` (` + eventColumns + `) VALUES (` + eventValuesPlaceholders + `)`
}

// EventInsertQueryForBatch returns the INSERT query without VALUES clause (for PrepareBatch)
func EventInsertQueryForBatch(tableName string) string {
	return `INSERT INTO ` + tableName + ` (` + eventColumns + `)`
}

// CreateEventsTableQuery returns the CREATE TABLE query for the events table.
// Rows are ordered by (source_app, timestamp, id) so per-application time-range
// scans stay local, and partitioned by month for cheap retention drops.
func CreateEventsTableQuery(tableName string) string {
	return `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		id UInt64,
		source_app LowCardinality(String),
		source_chain LowCardinality(String),
		timestamp DateTime64(3, 'UTC'),
		event_type LowCardinality(String),
		data String,
		transaction_hash String,
		block_height UInt64,
		severity LowCardinality(String),
		content_hash String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (source_app, timestamp, id)`
}

// SelectAppEventsQuery returns the query for reading recent events of one
// application, newest first.
func SelectAppEventsQuery(tableName string) string {
	return `SELECT ` + eventColumns + ` FROM ` + tableName + `
		WHERE source_app = ? ORDER BY timestamp DESC, id DESC LIMIT ?`
}
