package postgres

import (
	"strings"
	"testing"

	"github.com/acqdte/tradestate/internal/store"
)

func TestBuildQuerySQL(t *testing.T) {
	tests := []struct {
		name     string
		q        store.Query
		wantSQL  string
		wantArgs int
	}{
		{
			name:     "no filters",
			q:        store.Query{Collection: "positions"},
			wantSQL:  "SELECT key, data FROM documents WHERE collection = $1 ORDER BY key",
			wantArgs: 1,
		},
		{
			name: "equality filter",
			q: store.Query{
				Collection: "positions",
				Filters:    []store.Filter{{Field: "symbol", Op: store.OpEqual, Value: "BTC/USDT"}},
			},
			wantSQL:  "SELECT key, data FROM documents WHERE collection = $1 AND data->($2::text) = $3::jsonb ORDER BY key",
			wantArgs: 3,
		},
		{
			name: "range with order and limit",
			q: store.Query{
				Collection: "orders",
				Filters:    []store.Filter{{Field: "quantity", Op: store.OpGreater, Value: 10}},
				OrderBy:    "placed_at",
				Descending: true,
				Limit:      5,
			},
			wantSQL:  "SELECT key, data FROM documents WHERE collection = $1 AND data->($2::text) > $3::jsonb ORDER BY data->($4::text) DESC LIMIT 5",
			wantArgs: 4,
		},
		{
			name: "in filter uses containment",
			q: store.Query{
				Collection: "alerts",
				Filters:    []store.Filter{{Field: "severity", Op: store.OpIn, Value: []any{"warning", "critical"}}},
			},
			wantSQL:  "SELECT key, data FROM documents WHERE collection = $1 AND $3::jsonb @> data->($2::text) ORDER BY key",
			wantArgs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildQuerySQL(tt.q)
			if err != nil {
				t.Fatalf("buildQuerySQL() error: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("buildQuerySQL() sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("buildQuerySQL() args = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestBuildQuerySQLUnmarshalableValue(t *testing.T) {
	q := store.Query{
		Collection: "positions",
		Filters:    []store.Filter{{Field: "f", Op: store.OpEqual, Value: make(chan int)}},
	}
	_, _, err := buildQuerySQL(q)
	if err == nil {
		t.Fatal("buildQuerySQL() expected error for unmarshalable value, got nil")
	}
	if !store.IsMalformedRef(err) {
		t.Errorf("buildQuerySQL() error kind = %v, want malformed_ref", store.KindOf(err))
	}
	if !strings.Contains(err.Error(), "f") {
		t.Errorf("buildQuerySQL() error should name the field, got %q", err.Error())
	}
}
