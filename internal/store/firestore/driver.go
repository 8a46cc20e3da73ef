// Package firestore implements the document store driver backed by
// Google Cloud Firestore, the backend the live system persists to.
//
// Authentication uses a service-account credentials file; the file path
// is configuration, never its contents, and nothing from it is logged.
package firestore

import (
	"context"
	"errors"
	"fmt"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/acqdte/tradestate/internal/store"
)

// Config holds Firestore connection settings.
type Config struct {
	// ProjectID is the GCP project. Empty means detect from credentials.
	ProjectID string

	// Database is the Firestore database id. Empty means "(default)".
	Database string

	// CredentialsPath points at a service-account JSON file. Empty means
	// ambient application-default credentials.
	CredentialsPath string
}

// Driver implements store.Driver over a Firestore client.
type Driver struct {
	client *fs.Client
}

// Open authenticates and returns a live driver. No retry here; the
// gateway owns retry policy.
func Open(ctx context.Context, cfg Config) (*Driver, error) {
	project := cfg.ProjectID
	if project == "" {
		project = fs.DetectProjectID
	}
	database := cfg.Database
	if database == "" {
		database = fs.DefaultDatabaseID
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	client, err := fs.NewClientWithDatabase(ctx, project, database, opts...)
	if err != nil {
		return nil, &store.Error{
			Kind: store.KindConnection,
			Op:   "open",
			Err:  fmt.Errorf("create firestore client: %w", err),
		}
	}
	return &Driver{client: client}, nil
}

func (d *Driver) doc(ref store.Ref) *fs.DocumentRef {
	return d.client.Collection(ref.Collection).Doc(ref.Key)
}

func (d *Driver) Write(ctx context.Context, ref store.Ref, payload store.Payload) error {
	_, err := d.doc(ref).Set(ctx, map[string]any(payload))
	return classify("write", ref, err)
}

func (d *Driver) Merge(ctx context.Context, ref store.Ref, payload store.Payload, fields []string) error {
	var opt fs.SetOption
	if len(fields) == 0 {
		opt = fs.MergeAll
	} else {
		paths := make([]fs.FieldPath, 0, len(fields))
		for _, f := range fields {
			if _, ok := payload[f]; !ok {
				return &store.Error{
					Kind: store.KindMalformedRef,
					Op:   "merge",
					Ref:  ref,
					Err:  fmt.Errorf("merge field %q not present in payload", f),
				}
			}
			paths = append(paths, fs.FieldPath{f})
		}
		opt = fs.Merge(paths...)
	}
	_, err := d.doc(ref).Set(ctx, map[string]any(payload), opt)
	return classify("merge", ref, err)
}

func (d *Driver) Read(ctx context.Context, ref store.Ref) (store.Payload, bool, error) {
	snap, err := d.doc(ref).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify("read", ref, err)
	}
	return store.Payload(snap.Data()), true, nil
}

func (d *Driver) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	fq := d.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		op, ok := filterOps[f.Op]
		if !ok {
			return nil, &store.Error{
				Kind: store.KindMalformedRef,
				Op:   "query",
				Ref:  store.Ref{Collection: q.Collection},
				Err:  fmt.Errorf("operator %q not supported by firestore backend", f.Op),
			}
		}
		fq = fq.Where(f.Field, op, f.Value)
	}
	if q.OrderBy != "" {
		dir := fs.Asc
		if q.Descending {
			dir = fs.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	var docs []store.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, classify("query", store.Ref{Collection: q.Collection}, err)
		}
		docs = append(docs, store.Document{
			Ref:  store.Ref{Collection: q.Collection, Key: snap.Ref.ID},
			Data: store.Payload(snap.Data()),
		})
	}
}

func (d *Driver) Delete(ctx context.Context, ref store.Ref) error {
	// Firestore deletes are already idempotent: absent documents succeed.
	_, err := d.doc(ref).Delete(ctx)
	return classify("delete", ref, err)
}

// Ping reads a well-known sentinel document. NotFound counts as healthy;
// only transport failures do not.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.Collection("system_status").Doc("ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return classify("ping", store.Ref{}, err)
	}
	return nil
}

func (d *Driver) Close() error {
	return d.client.Close()
}

// filterOps maps store operators onto Firestore query operators.
var filterOps = map[store.Op]string{
	store.OpEqual:          "==",
	store.OpNotEqual:       "!=",
	store.OpLess:           "<",
	store.OpLessOrEqual:    "<=",
	store.OpGreater:        ">",
	store.OpGreaterOrEqual: ">=",
	store.OpIn:             "in",
	store.OpArrayContains:  "array-contains",
}

// classify maps a Firestore/gRPC failure into the store error taxonomy.
func classify(op string, ref store.Ref, err error) error {
	if err == nil {
		return nil
	}

	kind := store.KindInternal
	switch status.Code(err) {
	case codes.DeadlineExceeded, codes.Canceled:
		kind = store.KindTimeout
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		kind = store.KindTransient
	case codes.PermissionDenied, codes.Unauthenticated:
		kind = store.KindPermission
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		kind = store.KindMalformedRef
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = store.KindTimeout
	}

	return &store.Error{Kind: kind, Op: op, Ref: ref, Err: err}
}
