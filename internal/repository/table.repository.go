package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// TableStore is the tabular persistence contract the engines run against:
// tables addressable by name with typed columns, bulk upserts, full
// snapshot reads and a narrow read-only projection query. NULL round-trips
// as an absent value, never as zero or empty string.
type TableStore interface {
	CreateTable(ctx context.Context, name string, schema domain.Schema) error
	Upsert(ctx context.Context, name string, rows []domain.Record) error
	ReadAll(ctx context.Context, name string) ([]domain.Record, error)
	DropTable(ctx context.Context, name string) error
	// Select runs an arbitrary read-only projection and returns the
	// ordered named numeric columns; non-numeric cells come back absent.
	Select(ctx context.Context, query string) (*domain.Frame, error)
}

type postgresTableStore struct {
	db *sqlx.DB
	// keys caches the primary key columns of tables created this run, so
	// Upsert can build its conflict target.
	keys map[string][]string
}

func NewPostgresTableStore(db *sqlx.DB) TableStore {
	return &postgresTableStore{
		db:   db,
		keys: map[string][]string{},
	}
}

func (s *postgresTableStore) CreateTable(ctx context.Context, name string, schema domain.Schema) error {
	defs := make([]string, 0, len(schema.Columns)+1)
	for _, col := range schema.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", pq.QuoteIdentifier(col.Name), col.Type))
	}
	if len(schema.PrimaryKey) > 0 {
		quoted := make([]string, len(schema.PrimaryKey))
		for i, col := range schema.PrimaryKey {
			quoted[i] = pq.QuoteIdentifier(col)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(name), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return domain.StorageError{Op: "create table " + name, Err: err}
	}

	s.keys[name] = append([]string{}, schema.PrimaryKey...)
	return nil
}

func (s *postgresTableStore) DropTable(ctx context.Context, name string) error {
	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", pq.QuoteIdentifier(name))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return domain.StorageError{Op: "drop table " + name, Err: err}
	}
	delete(s.keys, name)
	return nil
}

// Upsert bulk-writes rows, adding any columns the table has not seen yet
// (ratio tables grow columns as the rule set changes). Conflicts on the
// table's primary key update the non-key columns.
func (s *postgresTableStore) Upsert(ctx context.Context, name string, rows []domain.Record) error {
	if len(rows) == 0 {
		return nil
	}

	columns := recordColumns(rows)
	if err := s.ensureColumns(ctx, name, columns, rows); err != nil {
		return err
	}

	keyCols, err := s.primaryKey(ctx, name)
	if err != nil {
		return err
	}
	keySet := map[string]bool{}
	for _, k := range keyCols {
		keySet[k] = true
	}

	quotedCols := make([]string, len(columns))
	for i, col := range columns {
		quotedCols[i] = pq.QuoteIdentifier(col)
	}

	conflict := ""
	if len(keyCols) > 0 {
		quotedKeys := make([]string, len(keyCols))
		for i, col := range keyCols {
			quotedKeys[i] = pq.QuoteIdentifier(col)
		}
		assignments := []string{}
		for _, col := range columns {
			if !keySet[col] {
				q := pq.QuoteIdentifier(col)
				assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
			}
		}
		if len(assignments) == 0 {
			conflict = fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(quotedKeys, ", "))
		} else {
			conflict = fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(quotedKeys, ", "), strings.Join(assignments, ", "))
		}
	}

	const chunkSize = 500
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)*len(columns))
		arg := 1
		for i, row := range chunk {
			slots := make([]string, len(columns))
			for j, col := range columns {
				slots[j] = fmt.Sprintf("$%d", arg)
				arg++
				if v, ok := row[col]; ok {
					args = append(args, v)
				} else {
					args = append(args, nil)
				}
			}
			placeholders[i] = "(" + strings.Join(slots, ", ") + ")"
		}

		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s%s",
			pq.QuoteIdentifier(name),
			strings.Join(quotedCols, ", "),
			strings.Join(placeholders, ", "),
			conflict,
		)
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return domain.StorageError{Op: "upsert into " + name, Err: err}
		}
	}

	return nil
}

// primaryKey resolves a table's key columns, falling back to the catalog
// for tables created in a previous run.
func (s *postgresTableStore) primaryKey(ctx context.Context, name string) ([]string, error) {
	if cols, ok := s.keys[name]; ok {
		return cols, nil
	}

	const query = `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)`
	cols := []string{}
	if err := s.db.SelectContext(ctx, &cols, query, name); err != nil {
		return nil, domain.StorageError{Op: "resolve primary key of " + name, Err: err}
	}
	s.keys[name] = cols
	return cols, nil
}

func (s *postgresTableStore) ensureColumns(ctx context.Context, name string, columns []string, rows []domain.Record) error {
	for _, col := range columns {
		colType := inferColumnType(col, rows)
		query := fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			pq.QuoteIdentifier(name), pq.QuoteIdentifier(col), colType,
		)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return domain.StorageError{Op: "add column " + col + " to " + name, Err: err}
		}
	}
	return nil
}

func inferColumnType(col string, rows []domain.Record) domain.ColumnType {
	for _, row := range rows {
		switch row[col].(type) {
		case float64, int, int64:
			return domain.DoubleColumn
		case time.Time:
			return domain.DateColumn
		case string, bool:
			return domain.TextColumn
		}
	}
	return domain.TextColumn
}

func (s *postgresTableStore) ReadAll(ctx context.Context, name string) ([]domain.Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s", pq.QuoteIdentifier(name))
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, domain.StorageError{Op: "read " + name, Err: err}
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		raw := map[string]interface{}{}
		if err := rows.MapScan(raw); err != nil {
			return nil, domain.StorageError{Op: "scan " + name, Err: err}
		}
		record := domain.Record{}
		for col, v := range raw {
			if v == nil {
				continue
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[col] = v
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError{Op: "read " + name, Err: err}
	}

	return out, nil
}

func (s *postgresTableStore) Select(ctx context.Context, query string) (*domain.Frame, error) {
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, domain.StorageError{Op: "projection query", Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, domain.StorageError{Op: "projection columns", Err: err}
	}

	frame := &domain.Frame{Columns: columns}
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, domain.StorageError{Op: "projection scan", Err: err}
		}
		cells := make([]*float64, len(raw))
		for i, v := range raw {
			cells[i] = asNumeric(v)
		}
		frame.Cells = append(frame.Cells, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError{Op: "projection query", Err: err}
	}

	return frame, nil
}

func asNumeric(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int64:
		f := float64(n)
		return &f
	case []byte:
		if f, err := strconv.ParseFloat(string(n), 64); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}

func recordColumns(rows []domain.Record) []string {
	set := map[string]bool{}
	for _, row := range rows {
		for col := range row {
			set[col] = true
		}
	}
	out := make([]string, 0, len(set))
	for col := range set {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}
