// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb retrieves instrument mode descriptions from the
// condition database.
package conddb // import "github.com/go-lpc/tgf/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-lpc/tgf/config"
	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// Layouts of the mode_fields table.
const (
	layoutRecord = "record"
	layoutRate   = "rate"
)

// DB exposes convenience methods to easily retrieve instrument modes
// from the condition database.
type DB struct {
	db   *sql.DB
	name string // name of the condition database
}

// Open opens a connection to the condition database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastMode returns the name of the mode of the most recent run.
func (db *DB) LastMode(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	mode := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT mode FROM runs ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return mode, fmt.Errorf("conddb: could not query last mode: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&mode)
		if err != nil {
			return mode, fmt.Errorf("conddb: could not get last mode value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return mode, fmt.Errorf("conddb: could not scan db for last mode: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return mode, fmt.Errorf("conddb: context error while retrieving last mode: %w", err)
	}

	if mode == "" {
		return mode, fmt.Errorf("conddb: no run in %q db", db.name)
	}

	return mode, nil
}

// Modes returns the names of all the modes, sorted.
func (db *DB) Modes(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var names []string
	rows, err := db.db.QueryContext(ctx, "SELECT name FROM modes ORDER BY name")
	if err != nil {
		return names, fmt.Errorf("conddb: could not run modes query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return names, fmt.Errorf("conddb: could not scan modes: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return names, fmt.Errorf("conddb: could not scan db for modes: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return names, fmt.Errorf("conddb: context error while retrieving modes: %w", err)
	}

	return names, nil
}

// Mode returns the description of the named mode.
func (db *DB) Mode(ctx context.Context, name string) (config.Mode, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	mode, err := db.mode(ctx, name)
	if err != nil {
		return mode, err
	}

	err = db.fields(ctx, &mode)
	if err != nil {
		return mode, err
	}

	if err := ctx.Err(); err != nil {
		return mode, fmt.Errorf("conddb: context error while retrieving mode %q: %w", name, err)
	}

	err = mode.Validate()
	if err != nil {
		return mode, fmt.Errorf("conddb: could not validate mode %q: %w", name, err)
	}

	return mode, nil
}

func (db *DB) mode(ctx context.Context, name string) (config.Mode, error) {
	var mode config.Mode
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT
	name, ordering, verify, verify_threshold, max_records,
	counter_field, rate_field, bucket_seconds,
	rise_time, const_time, max_value
FROM modes WHERE name=?
`,
		name,
	)
	if err != nil {
		return mode, fmt.Errorf("conddb: could not run mode %q query: %w", name, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		err = rows.Scan(
			&mode.Name, &mode.Ordering, &mode.Verify,
			&mode.VerifyThreshold, &mode.MaxRecords,
			&mode.Timing.CounterField, &mode.Timing.RateField,
			&mode.Timing.BucketSeconds,
			&mode.Timing.RiseTime, &mode.Timing.ConstTime,
			&mode.Timing.MaxValue,
		)
		if err != nil {
			return mode, fmt.Errorf("conddb: could not scan mode %q: %w", name, err)
		}
		n++
	}

	if err := rows.Err(); err != nil {
		return mode, fmt.Errorf("conddb: could not scan db for mode %q: %w", name, err)
	}

	switch n {
	case 0:
		return mode, fmt.Errorf("conddb: unknown mode %q", name)
	case 1:
		return mode, nil
	default:
		return mode, fmt.Errorf("conddb: mode %q is not unique (n=%d)", name, n)
	}
}

func (db *DB) fields(ctx context.Context, mode *config.Mode) error {
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT layout, name, bits FROM mode_fields
WHERE mode=?
ORDER BY layout, position
`,
		mode.Name,
	)
	if err != nil {
		return fmt.Errorf("conddb: could not run fields query for mode %q: %w", mode.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			layout string
			field  config.Field
		)
		err = rows.Scan(&layout, &field.Name, &field.Bits)
		if err != nil {
			return fmt.Errorf("conddb: could not scan fields of mode %q: %w", mode.Name, err)
		}
		switch layout {
		case layoutRecord:
			mode.Fields = append(mode.Fields, field)
		case layoutRate:
			mode.Timing.Rates = append(mode.Timing.Rates, field)
		default:
			return fmt.Errorf(
				"conddb: invalid layout %q for field %q of mode %q",
				layout, field.Name, mode.Name,
			)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("conddb: could not scan db for fields of mode %q: %w", mode.Name, err)
	}

	return nil
}
