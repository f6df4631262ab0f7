package source

/*
saleprobe — finds company websites whose domains are parked for sale
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/x-stp/saleprobe/internal/core"
)

// DefaultReviewedSince is the review-date cutoff used when none is configured.
var DefaultReviewedSince = time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)

// Filter narrows the default work-queue query. Zero-valued fields are left out
// of the WHERE clause.
type Filter struct {
	ReviewedSince time.Time // w."ReviewedDate" > ReviewedSince
	DocumentType  string    // w."DocumentType" = DocumentType
	EventStatus   int       // w."EventStatus" = EventStatus
	EventType     int       // w."EventType" = EventType
	Limit         int       // LIMIT, when positive
}

// DefaultFilter returns the filter of the standing website-monitoring query.
func DefaultFilter() Filter {
	return Filter{
		ReviewedSince: DefaultReviewedSince,
		DocumentType:  "202",
		EventStatus:   2,
		EventType:     1,
	}
}

const baseQuery = `SELECT w."CompanyId", c."WebAddress", a."Name"
FROM "WorkQ" w
JOIN "GlobalReference" g ON w."CompanyId" = g."CompanyId"
JOIN "CompanyOperation" c ON w."CompanyId" = c."CompanyId"
JOIN "Account" a ON w."AssignedDAId" = a."UserId"`

// BuildQuery returns the work-queue query for f and its positional arguments.
func BuildQuery(f Filter) (string, []any) {
	where := []string{
		`g."TypeStatus" = 'true'`,
		`c."WebAddress" IS NOT NULL`,
	}
	var args []any
	argN := 1

	if !f.ReviewedSince.IsZero() {
		where = append(where, fmt.Sprintf(`w."ReviewedDate" > $%d`, argN))
		args = append(args, f.ReviewedSince)
		argN++
	}
	if f.DocumentType != "" {
		where = append(where, fmt.Sprintf(`w."DocumentType" = $%d`, argN))
		args = append(args, f.DocumentType)
		argN++
	}
	if f.EventStatus != 0 {
		where = append(where, fmt.Sprintf(`w."EventStatus" = $%d`, argN))
		args = append(args, f.EventStatus)
		argN++
	}
	if f.EventType != 0 {
		where = append(where, fmt.Sprintf(`w."EventType" = $%d`, argN))
		args = append(args, f.EventType)
		argN++
	}

	q := baseQuery + "\nWHERE " + strings.Join(where, "\n  AND ")
	if f.Limit > 0 {
		q += fmt.Sprintf("\nLIMIT $%d", argN)
		args = append(args, f.Limit)
	}
	return q, args
}

// PostgresConfig configures the Postgres row source.
type PostgresConfig struct {
	DSN string
	// Query overrides the built-in query. Its first three columns must be
	// id, address and name; it takes no arguments.
	Query  string
	Filter Filter
	// MaxConns caps the pool size. Defaults to 2.
	MaxConns int
	// ViaBouncer switches to the simple protocol for PgBouncer in transaction mode.
	ViaBouncer bool
}

// querier is the part of *pgxpool.Pool the source uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads rows from the company database.
type Postgres struct {
	pool  *pgxpool.Pool
	db    querier
	query string
	args  []any
}

// OpenPostgres connects a pool for cfg.DSN. The caller must Close it.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 2
	}
	poolCfg.MaxConns = int32(maxConns)
	if cfg.ViaBouncer {
		poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	p := &Postgres{pool: pool, db: pool}
	p.query, p.args = QueryFor(cfg)
	return p, nil
}

// QueryFor returns the SQL and arguments the Postgres source runs for cfg.
func QueryFor(cfg PostgresConfig) (string, []any) {
	if q := strings.TrimSpace(cfg.Query); q != "" {
		return q, nil
	}
	return BuildQuery(cfg.Filter)
}

// Name implements Source.
func (p *Postgres) Name() string { return "postgres" }

// Rows implements Source.
func (p *Postgres) Rows(ctx context.Context) ([]core.Row, error) {
	rows, err := p.db.Query(ctx, p.query, p.args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// valueRows is the part of pgx.Rows collectRows reads.
type valueRows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
}

func collectRows(rows valueRows) ([]core.Row, error) {
	var out []core.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		if len(vals) < 2 {
			return nil, fmt.Errorf("query returned %d columns, want at least id and address", len(vals))
		}
		row := core.Row{
			ID:      textValue(vals[0]),
			Address: textValue(vals[1]),
		}
		if len(vals) > 2 {
			row.Name = textValue(vals[2])
		}
		if row.ID == "" {
			return nil, fmt.Errorf("row %d has an empty id", len(out)+1)
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("rows: %w", rows.Err())
	}
	return out, nil
}

// textValue renders a decoded column value as text. NULL becomes "".
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case fmt.Stringer:
		return t.String()
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil || dv == nil {
			return ""
		}
		return fmt.Sprint(dv)
	default:
		return fmt.Sprint(t)
	}
}
