// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
//
// Queries run against a fakedb connection are answered, in order, with
// the result sets handed to Run.
package fakedb // import "github.com/go-lpc/tgf/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
)

// Query is a query received by the driver.
type Query struct {
	SQL  string
	Args []driver.Value
}

var run struct {
	mu sync.Mutex // serializes calls to Run
}

var state struct {
	mu      sync.Mutex
	rows    []Rows
	queries []Query
}

// Run runs f, answering the queries it issues with rows, in order.
// Run returns the error of f.
func Run(ctx context.Context, rows []Rows, f func(ctx context.Context) error) error {
	run.mu.Lock()
	defer run.mu.Unlock()

	state.mu.Lock()
	state.rows = append([]Rows(nil), rows...)
	state.queries = nil
	state.mu.Unlock()

	return f(ctx)
}

// Queries returns the queries received during the last call to Run.
func Queries() []Query {
	state.mu.Lock()
	defer state.mu.Unlock()
	return append([]Query(nil), state.queries...)
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

// Close invalidates the connection.
func (c *Conn) Close() error {
	return nil
}

// Begin starts and returns a new transaction.
//
// Deprecated: Drivers should implement ConnBeginTx instead (or additionally).
func (c *Conn) Begin() (driver.Tx, error) {
	panic("not implemented")
}

type Stmt struct {
	query string
}

// Close closes the statement.
func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns the number of placeholder parameters.
// fakedb does not know, so the sql package does not check argument counts.
func (stmt *Stmt) NumInput() int {
	return -1
}

// Exec executes a query that doesn't return rows.
//
// Deprecated: Drivers should implement StmtExecContext instead (or additionally).
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	panic("not implemented")
}

// Query executes a query that may return rows, such as a SELECT.
//
// Deprecated: Drivers should implement StmtQueryContext instead (or additionally).
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.queries = append(state.queries, Query{
		SQL:  stmt.query,
		Args: append([]driver.Value(nil), args...),
	})
	if len(state.rows) == 0 {
		return nil, fmt.Errorf("fakedb: no result set left for query %q", stmt.query)
	}
	rows := state.rows[0]
	state.rows = state.rows[1:]
	return &rows, nil
}

// Rows is one result set.
type Rows struct {
	Names  []string
	Values [][]driver.Value
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

// Close closes the rows iterator.
func (rows *Rows) Close() error {
	return nil
}

// Next populates dest with the next row of data.
// Next returns io.EOF when there are no more rows.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
