package frame

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

// ErrFormat reports a payload file whose tables do not form a frame.
var ErrFormat = errors.New("malformed frame database")

// currentVersion is the current version of the payload format.
const currentVersion = "1.0"

// batchSize bounds the rows per insert transaction.
const batchSize = 10000

// Column cells are stored one SQLite column per frame column, named by
// position. Dates travel as RFC 3339 text, jsonb cells as JSON text.
func affinity(t Type) string {
	switch t {
	case Number:
		return "REAL"
	case Bool:
		return "INTEGER"
	}
	return "TEXT"
}

// WriteFile replaces path with a SQLite database holding the frame. A nil
// frame writes an empty payload with no columns.
func WriteFile(path string, f *Frame) error {
	if f == nil {
		f = &Frame{}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	// Performance tuning for bulk insert
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}

	var defs strings.Builder
	for i, c := range f.cols {
		fmt.Fprintf(&defs, ", c%d %s", i, affinity(c.Type))
	}
	schema := fmt.Sprintf(`
	CREATE TABLE frame_meta (version TEXT NOT NULL);
	CREATE TABLE frame_schema (
		pos INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		required INTEGER NOT NULL,
		description TEXT NOT NULL
	);
	CREATE TABLE records (idx INTEGER PRIMARY KEY%s);
	`, defs.String())
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := db.Exec(`INSERT INTO frame_meta (version) VALUES (?)`, currentVersion); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	for i, c := range f.cols {
		_, err := db.Exec(`INSERT INTO frame_schema (pos, name, type, required, description) VALUES (?, ?, ?, ?, ?)`,
			i, c.Name, string(c.Type), c.Required, c.Description)
		if err != nil {
			return fmt.Errorf("write schema row %d: %w", i, err)
		}
	}

	return writeRecords(db, f)
}

func writeRecords(db *sql.DB, f *Frame) error {
	marks := make([]string, len(f.cols)+1)
	names := make([]string, len(f.cols)+1)
	names[0] = "idx"
	for i := range marks {
		marks[i] = "?"
		if i > 0 {
			names[i] = fmt.Sprintf("c%d", i-1)
		}
	}
	insert := fmt.Sprintf("INSERT INTO records (%s) VALUES (%s)",
		strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return err
	}

	count := 0
	for ri, row := range f.rows {
		args := make([]any, 0, len(row)+1)
		args = append(args, ri)
		for ci, cell := range row {
			enc, err := encodeCell(f.cols[ci].Type, cell)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", ri, f.cols[ci].Name, err)
			}
			args = append(args, enc)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert row %d: %w", ri, err)
		}

		count++
		if count >= batchSize {
			_ = stmt.Close()
			if err := tx.Commit(); err != nil {
				return err
			}
			if tx, err = db.Begin(); err != nil {
				return err
			}
			if stmt, err = tx.Prepare(insert); err != nil {
				return err
			}
			count = 0
		}
	}

	_ = stmt.Close()
	return tx.Commit()
}

func encodeCell(t Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case Date:
		ts, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("date cell holds %T", v)
		}
		return ts.Format(time.RFC3339Nano), nil
	case JSONB:
		return oj.JSON(v), nil
	}
	return v, nil
}

// ReadFile loads a frame from a payload file written by WriteFile.
func ReadFile(path string) (*Frame, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("frame %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	var version string
	if err := db.QueryRow(`SELECT version FROM frame_meta`).Scan(&version); err != nil {
		return nil, fmt.Errorf("frame %s: no meta table: %w", path, ErrFormat)
	}

	cols, err := readSchema(db)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", path, err)
	}
	f, err := New(cols)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w: %s", path, ErrFormat, err)
	}
	if err := readRecords(db, f); err != nil {
		return nil, fmt.Errorf("frame %s: %w", path, err)
	}
	return f, nil
}

func readSchema(db *sql.DB) ([]Column, error) {
	rows, err := db.Query(`SELECT name, type, required, description FROM frame_schema ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("no schema table: %w", ErrFormat)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var cols []Column
	for rows.Next() {
		var c Column
		var typ string
		if err := rows.Scan(&c.Name, &typ, &c.Required, &c.Description); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		c.Type = Type(typ)
		if !validType(c.Type) {
			return nil, fmt.Errorf("column %q: unknown type %q: %w", c.Name, typ, ErrFormat)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func readRecords(db *sql.DB, f *Frame) error {
	names := make([]string, len(f.cols)+1)
	names[0] = "idx"
	for i := range f.cols {
		names[i+1] = fmt.Sprintf("c%d", i)
	}
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM records ORDER BY idx", strings.Join(names, ", ")))
	if err != nil {
		return fmt.Errorf("no records table: %w", ErrFormat)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var idx int64
		dests := make([]any, len(f.cols)+1)
		dests[0] = &idx
		for i, c := range f.cols {
			dests[i+1] = scanDest(c.Type)
		}
		if err := rows.Scan(dests...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		row := make([]any, len(f.cols))
		for i, c := range f.cols {
			cell, err := decodeCell(c.Type, dests[i+1])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", idx, c.Name, err)
			}
			row[i] = cell
		}
		f.rows = append(f.rows, row)
	}
	return rows.Err()
}

func scanDest(t Type) any {
	switch t {
	case Number:
		return new(sql.NullFloat64)
	case Bool:
		return new(sql.NullBool)
	}
	return new(sql.NullString)
}

func decodeCell(t Type, dest any) (any, error) {
	switch t {
	case Number:
		h := dest.(*sql.NullFloat64)
		if !h.Valid {
			return nil, nil
		}
		return h.Float64, nil
	case Bool:
		h := dest.(*sql.NullBool)
		if !h.Valid {
			return nil, nil
		}
		return h.Bool, nil
	}
	h := dest.(*sql.NullString)
	if !h.Valid {
		return nil, nil
	}
	switch t {
	case Date:
		ts, err := time.Parse(time.RFC3339Nano, h.String)
		if err != nil {
			return nil, fmt.Errorf("parse date: %w", err)
		}
		return ts, nil
	case JSONB:
		v, err := oj.Parse([]byte(h.String))
		if err != nil {
			return nil, fmt.Errorf("parse json cell: %w", err)
		}
		return v, nil
	}
	return h.String, nil
}
