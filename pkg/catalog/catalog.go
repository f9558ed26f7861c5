// Package catalog discovers the tables that can be transferred out of a database.
//
// Babelfish, SQL Server and plain ANSI servers expose different catalog views, so
// discovery tries one query per dialect in a fixed order and keeps the first one
// the server accepts.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/block/bcpzip/pkg/progress"
	"github.com/siddontang/loggers"
)

// Querier is satisfied by *sql.DB and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DiscoveryError is returned when no dialect query succeeds or a row is malformed.
type DiscoveryError struct {
	Msg string
	Err error
}

func (e *DiscoveryError) Error() string {
	if e.Err == nil {
		return e.Msg
	}

	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

const (
	tablesSelectErr = "Tables select error"
	dbNamesErr      = "DB names select error"
	versionErr      = "Invalid empty response to version query"
)

type dialect struct {
	name  string
	query string
	// bindDB passes the database name as the single query parameter.
	bindDB bool
}

// dialects are tried in order, first success wins.
var dialects = []dialect{
	{
		name: "babelfish",
		query: `select
    schema_name(tb.schema_id) as table_schema,
    tb.name as table_name,
    case
        when pc.reltuples is null then cast(-1 as bigint)
        when pc.reltuples = -1 then cast(0 as bigint)
        else cast(pc.reltuples as bigint)
    end as row_count
from sys.tables as tb
left join pg_catalog.pg_class pc
    on pc.relnamespace = tb.schema_id
    and pc.relname = tb.name
where
    pc.relkind in ('r', 'f', 'p')`,
	},
	{
		name: "sqlserver",
		query: `select
    schema_name(tb.schema_id) as table_schema,
    tb.name as table_name,
    case
        when st.row_count is null then cast(-1 as bigint)
        else st.row_count
    end as row_count
from sys.tables as tb
left join sys.dm_db_partition_stats as st
    on tb.object_id = st.object_id
where
    tb.type_desc = 'USER_TABLE'
    and st.index_id in (0, 1)`,
	},
	{
		name: "ansi",
		query: `select
    table_schema,
    table_name,
    cast(-1 as bigint) as row_count
from information_schema.tables
where table_type = 'BASE TABLE'
and table_catalog = @p1`,
		bindDB: true,
	},
}

// Catalog runs discovery queries against one database.
type Catalog struct {
	q      Querier
	logger loggers.Advanced
}

func New(q Querier, logger loggers.Advanced) *Catalog {
	return &Catalog{q: q, logger: logger}
}

// Tables returns the transferable tables of dbname with best-effort row counts.
// The querier must already be connected to dbname. Every row is reported to sink
// as it is read.
func (c *Catalog) Tables(ctx context.Context, dbname string, sink progress.Sink) ([]Table, error) {
	sink.Progress("Loading tables ...")
	var lastErr error
	for _, d := range dialects {
		var args []any
		if d.bindDB {
			args = append(args, dbname)
		}
		rows, err := c.q.QueryContext(ctx, d.query, args...)
		if err != nil {
			c.logger.Debugf("table discovery with %s dialect failed: %v", d.name, err)
			lastErr = err

			continue
		}
		c.logger.Debugf("table discovery using %s dialect", d.name)

		return scanTables(rows, sink)
	}

	return nil, &DiscoveryError{Msg: tablesSelectErr, Err: lastErr}
}

func scanTables(rows *sql.Rows, sink progress.Sink) ([]Table, error) {
	defer rows.Close()
	var tables []Table
	for rows.Next() {
		var schema, name sql.NullString
		var count sql.NullInt64
		if err := rows.Scan(&schema, &name, &count); err != nil {
			return nil, &DiscoveryError{Msg: tablesSelectErr, Err: err}
		}
		if !schema.Valid || !name.Valid || !count.Valid {
			return nil, &DiscoveryError{Msg: tablesSelectErr}
		}
		t := NewTable(schema.String, name.String, count.Int64)
		sink.Progress(fmt.Sprintf("%s %d rows", t, t.RowCount))
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &DiscoveryError{Msg: tablesSelectErr, Err: err}
	}

	return tables, nil
}

// ListDatabases returns the names of all databases on the server.
func (c *Catalog) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.q.QueryContext(ctx, "select name from sys.databases")
	if err != nil {
		return nil, &DiscoveryError{Msg: dbNamesErr, Err: err}
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, &DiscoveryError{Msg: dbNamesErr, Err: err}
		}
		if !name.Valid {
			return nil, &DiscoveryError{Msg: dbNamesErr}
		}
		names = append(names, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, &DiscoveryError{Msg: dbNamesErr, Err: err}
	}

	return names, nil
}

// ServerVersion returns the server's @@version banner.
func (c *Catalog) ServerVersion(ctx context.Context) (string, error) {
	var version sql.NullString
	err := c.q.QueryRowContext(ctx, "select @@version").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !version.Valid) {
		return "", &DiscoveryError{Msg: versionErr}
	}
	if err != nil {
		return "", fmt.Errorf("could not query server version: %w", err)
	}

	return version.String, nil
}
