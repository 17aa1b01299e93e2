package domain

// ColumnType enumerates the column types the table store understands.
type ColumnType string

const (
	TextColumn   ColumnType = "TEXT"
	DoubleColumn ColumnType = "DOUBLE PRECISION"
	DateColumn   ColumnType = "DATE"
)

type Column struct {
	Name string
	Type ColumnType
}

// Schema describes a table for create-if-absent. PrimaryKey columns drive
// upsert conflict resolution and must appear in Columns.
type Schema struct {
	Columns    []Column
	PrimaryKey []string
}

// Record is one stored row: column name to value. Supported value types are
// string, float64, bool and time.Time; a missing key is persisted as NULL.
type Record map[string]any
