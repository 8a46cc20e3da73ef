// Package sqlite implements the document store driver on a local SQLite
// file, used for backtest runs that must not touch remote state.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/acqdte/tradestate/internal/store"
)

// Driver implements store.Driver over a single SQLite database.
//
// Table: documents(collection, key, data) PRIMARY KEY (collection, key)
type Driver struct {
	db *sql.DB
}

// Open creates the database file (and parent directory) if needed.
func Open(path string) (*Driver, error) {
	connErr := func(err error) error {
		return &store.Error{Kind: store.KindConnection, Op: "open", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, connErr(err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, connErr(err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, connErr(err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, key)
	)`); err != nil {
		db.Close()
		return nil, connErr(err)
	}
	return &Driver{db: db}, nil
}

func (d *Driver) Write(ctx context.Context, ref store.Ref, payload store.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &store.Error{Kind: store.KindMalformedRef, Op: "write", Ref: ref, Err: err}
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, data) VALUES (?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET data = excluded.data`,
		ref.Collection, ref.Key, string(data),
	)
	return classify("write", ref, err)
}

// Merge reads, merges in process, and writes back inside a transaction.
// SQLite's json_patch drops null-valued fields, which payloads may
// legitimately carry, so the merge happens here.
func (d *Driver) Merge(ctx context.Context, ref store.Ref, payload store.Payload, fields []string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("merge", ref, err)
	}
	defer tx.Rollback()

	doc := make(store.Payload)
	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND key = ?`,
		ref.Collection, ref.Key,
	).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// absent document: merge creates it
	case err != nil:
		return classify("merge", ref, err)
	default:
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return &store.Error{Kind: store.KindInternal, Op: "merge", Ref: ref, Err: err}
		}
	}

	if len(fields) == 0 {
		for k := range payload {
			fields = append(fields, k)
		}
	}
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
		doc[f] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return &store.Error{Kind: store.KindMalformedRef, Op: "merge", Ref: ref, Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (collection, key, data) VALUES (?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET data = excluded.data`,
		ref.Collection, ref.Key, string(data),
	); err != nil {
		return classify("merge", ref, err)
	}
	return classify("merge", ref, tx.Commit())
}

func (d *Driver) Read(ctx context.Context, ref store.Ref) (store.Payload, bool, error) {
	var raw string
	err := d.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND key = ?`,
		ref.Collection, ref.Key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify("read", ref, err)
	}
	var payload store.Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false, &store.Error{Kind: store.KindInternal, Op: "read", Ref: ref, Err: err}
	}
	return payload, true, nil
}

func (d *Driver) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT key, data FROM documents WHERE collection = ?`)
	args := []any{q.Collection}

	for _, f := range q.Filters {
		op, ok := filterOps[f.Op]
		if !ok {
			return nil, &store.Error{
				Kind: store.KindMalformedRef,
				Op:   "query",
				Ref:  store.Ref{Collection: q.Collection},
				Err:  fmt.Errorf("operator %q not supported by sqlite backend", f.Op),
			}
		}
		fmt.Fprintf(&sb, " AND json_extract(data, ?) %s ?", op)
		args = append(args, "$."+f.Field, f.Value)
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY json_extract(data, ?) %s", dir)
		args = append(args, "$."+q.OrderBy)
	} else {
		sb.WriteString(" ORDER BY key")
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	rows, err := d.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, classify("query", store.Ref{Collection: q.Collection}, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, classify("query", store.Ref{Collection: q.Collection}, err)
		}
		var payload store.Payload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
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

func (d *Driver) Delete(ctx context.Context, ref store.Ref) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND key = ?`,
		ref.Collection, ref.Key,
	)
	return classify("delete", ref, err)
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return classify("ping", store.Ref{}, err)
	}
	return nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}

// filterOps maps store operators onto SQL comparison operators. Set
// membership and array containment have no json_extract translation and
// are rejected.
var filterOps = map[store.Op]string{
	store.OpEqual:          "=",
	store.OpNotEqual:       "<>",
	store.OpLess:           "<",
	store.OpLessOrEqual:    "<=",
	store.OpGreater:        ">",
	store.OpGreaterOrEqual: ">=",
}

// classify maps a SQLite failure into the store error taxonomy.
func classify(op string, ref store.Ref, err error) error {
	if err == nil {
		return nil
	}

	kind := store.KindInternal
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = store.KindTimeout
	} else {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) {
			switch sqlErr.Code {
			case sqlite3.ErrBusy, sqlite3.ErrLocked:
				kind = store.KindTransient
			case sqlite3.ErrAuth, sqlite3.ErrPerm:
				kind = store.KindPermission
			case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
				kind = store.KindConnection
			}
		}
	}

	return &store.Error{Kind: kind, Op: op, Ref: ref, Err: err}
}
