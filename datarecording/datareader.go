package datarecording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
)

// ErrNoRecording is returned when opening a database that does not exist.
var ErrNoRecording = errors.New("recording not found")

// ErrUnmappedTable is returned when querying a table that has no Go type
// mapped to it.
var ErrUnmappedTable = errors.New("table is not mapped")

// QueryParams selects and pages the rows of a table.
type QueryParams struct {
	// Where is an SQL condition without the WHERE keyword, for example
	// "Position > ? AND ByteOffset = ?".
	Where string
	Args  []any

	// Limit caps the number of rows returned. Zero means no cap.
	Limit  int
	Offset int

	// OrderBy is an SQL ordering without the ORDER BY keywords, for example
	// "Position DESC".
	OrderBy string
}

// DataReader reads back what a DataRecorder stored.
type DataReader interface {
	// MapTable decodes the rows of tableName into values of the type of
	// sampleEntry. Columns without a matching field are skipped.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables, sorted by name.
	ListTables() []string

	// Query returns pointers to the decoded rows selected by params, together
	// with the number of rows matching params.Where regardless of paging.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type tableMapping struct {
	entryType reflect.Type
	fields    map[string]int
}

type sqliteReader struct {
	db     *sql.DB
	tables map[string]tableMapping
}

// NewReader opens an existing recording read-only.
func NewReader(path string) (DataReader, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path given", ErrNoRecording)
	}

	filename := DBName(path)

	_, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRecording, filename)
	}

	db, err := sql.Open("sqlite3", "file:"+filename+"?mode=ro")
	if err != nil {
		return nil, err
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a DataReader on an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:     db,
		tables: make(map[string]tableMapping),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	t := reflect.TypeOf(sampleEntry)

	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields[t.Field(i).Name] = i
	}

	r.tables[tableName] = tableMapping{entryType: t, fields: fields}
}

func (r *sqliteReader) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	mapping, ok := r.tables[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnmappedTable, tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+whereClause(params),
		params.Args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		selectStatement(tableName, params), params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := mapping.decode(rows)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func whereClause(params QueryParams) string {
	if params.Where == "" {
		return ""
	}

	return " WHERE " + params.Where
}

func selectStatement(tableName string, params QueryParams) string {
	var b strings.Builder

	b.WriteString("SELECT * FROM ")
	b.WriteString(tableName)
	b.WriteString(whereClause(params))

	if params.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(params.OrderBy)
	}

	switch {
	case params.Limit > 0:
		fmt.Fprintf(&b, " LIMIT %d", params.Limit)
	case params.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT.
		b.WriteString(" LIMIT -1")
	}

	if params.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", params.Offset)
	}

	return b.String()
}

func (m tableMapping) decode(rows *sql.Rows) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(m.entryType)
		targets := make([]any, len(columns))

		for i, column := range columns {
			idx, ok := m.fields[column]
			if !ok {
				targets[i] = new(any)
				continue
			}

			targets[i] = entry.Elem().Field(idx).Addr().Interface()
		}

		err := rows.Scan(targets...)
		if err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
