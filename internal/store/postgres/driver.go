// Package postgres implements the document store driver on PostgreSQL,
// storing each document as a JSONB row keyed by (collection, key). Used
// by self-hosted deployments that cannot reach Cloud Firestore.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acqdte/tradestate/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, key)
)`

// Driver implements store.Driver over a pgx connection pool.
type Driver struct {
	pool *pgxpool.Pool
}

// Open creates the connection pool, verifies it with a ping, and ensures
// the documents table exists.
func Open(ctx context.Context, cfg Config) (*Driver, error) {
	connErr := func(err error) error {
		return &store.Error{Kind: store.KindConnection, Op: "open", Err: err}
	}

	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, connErr(fmt.Errorf("parse connection string: %w", err))
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, connErr(fmt.Errorf("create pool: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, connErr(fmt.Errorf("ping database: %w", err))
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, connErr(fmt.Errorf("ensure documents table: %w", err))
	}

	return &Driver{pool: pool}, nil
}

func (d *Driver) Write(ctx context.Context, ref store.Ref, payload store.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &store.Error{Kind: store.KindMalformedRef, Op: "write", Ref: ref, Err: err}
	}
	_, err = d.pool.Exec(ctx,
		`INSERT INTO documents (collection, key, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		ref.Collection, ref.Key, data,
	)
	return classify("write", ref, err)
}

func (d *Driver) Merge(ctx context.Context, ref store.Ref, payload store.Payload, fields []string) error {
	subset := payload
	if len(fields) > 0 {
		subset = make(store.Payload, len(fields))
		for _, f := range fields {
			v, ok := payload[f]
			if !ok {
				return &store.Error{
					Kind: store.KindMalformedRef,
					Op:   "merge",
					Ref:  ref,
					Err:  fmt.Errorf("merge field %q not present in payload", f),
				}
			}
			subset[f] = v
		}
	}
	data, err := json.Marshal(subset)
	if err != nil {
		return &store.Error{Kind: store.KindMalformedRef, Op: "merge", Ref: ref, Err: err}
	}
	// JSONB || merges top-level fields, leaving others untouched.
	_, err = d.pool.Exec(ctx,
		`INSERT INTO documents (collection, key, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, key) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()`,
		ref.Collection, ref.Key, data,
	)
	return classify("merge", ref, err)
}

func (d *Driver) Read(ctx context.Context, ref store.Ref) (store.Payload, bool, error) {
	var raw []byte
	err := d.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND key = $2`,
		ref.Collection, ref.Key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify("read", ref, err)
	}
	var payload store.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, &store.Error{Kind: store.KindInternal, Op: "read", Ref: ref, Err: err}
	}
	return payload, true, nil
}

func (d *Driver) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	sql, args, err := buildQuerySQL(q)
	if err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("query", store.Ref{Collection: q.Collection}, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, classify("query", store.Ref{Collection: q.Collection}, err)
		}
		var payload store.Payload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, &store.Error{Kind: store.KindInternal, Op: "query", Ref: store.Ref{Collection: q.Collection}, Err: err}
		}
		docs = append(docs, store.Document{
			Ref:  store.Ref{Collection: q.Collection, Key: key},
			Data: payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query", store.Ref{Collection: q.Collection}, err)
	}
	return docs, nil
}

// buildQuerySQL translates a store query into SQL over the JSONB column.
// Filter values are compared as JSONB so numbers and strings order
// correctly within their own type.
func buildQuerySQL(q store.Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT key, data FROM documents WHERE collection = $1`)
	args := []any{q.Collection}

	for _, f := range q.Filters {
		val, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, &store.Error{
				Kind: store.KindMalformedRef,
				Op:   "query",
				Ref:  store.Ref{Collection: q.Collection},
				Err:  fmt.Errorf("filter value for %q: %w", f.Field, err),
			}
		}
		args = append(args, f.Field)
		fieldArg := len(args)
		args = append(args, val)
		valArg := len(args)

		switch f.Op {
		case store.OpEqual:
			fmt.Fprintf(&sb, " AND data->($%d::text) = $%d::jsonb", fieldArg, valArg)
		case store.OpNotEqual:
			fmt.Fprintf(&sb, " AND data->($%d::text) <> $%d::jsonb", fieldArg, valArg)
		case store.OpLess:
			fmt.Fprintf(&sb, " AND data->($%d::text) < $%d::jsonb", fieldArg, valArg)
		case store.OpLessOrEqual:
			fmt.Fprintf(&sb, " AND data->($%d::text) <= $%d::jsonb", fieldArg, valArg)
		case store.OpGreater:
			fmt.Fprintf(&sb, " AND data->($%d::text) > $%d::jsonb", fieldArg, valArg)
		case store.OpGreaterOrEqual:
			fmt.Fprintf(&sb, " AND data->($%d::text) >= $%d::jsonb", fieldArg, valArg)
		case store.OpIn:
			// value is a JSON array; containment checks membership.
			fmt.Fprintf(&sb, " AND $%d::jsonb @> data->($%d::text)", valArg, fieldArg)
		case store.OpArrayContains:
			fmt.Fprintf(&sb, " AND data->($%d::text) @> $%d::jsonb", fieldArg, valArg)
		default:
			return "", nil, &store.Error{
				Kind: store.KindMalformedRef,
				Op:   "query",
				Ref:  store.Ref{Collection: q.Collection},
				Err:  fmt.Errorf("operator %q not supported by postgres backend", f.Op),
			}
		}
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY data->($%d::text) %s", len(args), dir)
	} else {
		sb.WriteString(" ORDER BY key")
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args, nil
}

func (d *Driver) Delete(ctx context.Context, ref store.Ref) error {
	_, err := d.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2`,
		ref.Collection, ref.Key,
	)
	return classify("delete", ref, err)
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return classify("ping", store.Ref{}, err)
	}
	return nil
}

func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// classify maps a pgx failure into the store error taxonomy using the
// SQLSTATE class.
func classify(op string, ref store.Ref, err error) error {
	if err == nil {
		return nil
	}

	kind := store.KindInternal
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = store.KindTimeout
	} else {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case strings.HasPrefix(pgErr.Code, "28"): // invalid authorization
				kind = store.KindPermission
			case pgErr.Code == "42501": // insufficient privilege
				kind = store.KindPermission
			case strings.HasPrefix(pgErr.Code, "42"): // syntax / undefined object
				kind = store.KindMalformedRef
			case strings.HasPrefix(pgErr.Code, "22"): // data exception
				kind = store.KindMalformedRef
			case strings.HasPrefix(pgErr.Code, "53"), // insufficient resources
				strings.HasPrefix(pgErr.Code, "57"), // operator intervention
				strings.HasPrefix(pgErr.Code, "58"): // system error
				kind = store.KindTransient
			case strings.HasPrefix(pgErr.Code, "08"): // connection exception
				kind = store.KindConnection
			}
		} else if pgconn.SafeToRetry(err) {
			kind = store.KindConnection
		}
	}

	return &store.Error{Kind: kind, Op: op, Ref: ref, Err: err}
}
