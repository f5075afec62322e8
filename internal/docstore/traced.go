// AngelaMos | 2026
// traced.go

package docstore

import (
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hotdog/elotto/internal/core"
)

type TracedStore struct {
	next   Store
	tracer trace.Tracer
}

func NewTracedStore(next Store, tracer trace.Tracer) *TracedStore {
	return &TracedStore{next: next, tracer: tracer}
}

func (s *TracedStore) start(
	ctx context.Context,
	op, collection string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", "docstore"),
		attribute.String("docstore.collection", collection),
	)
	return s.tracer.Start(ctx, "docstore."+op, trace.WithAttributes(attrs...))
}

func (s *TracedStore) Get(
	ctx context.Context,
	collection, id string,
) (json.RawMessage, error) {
	ctx, span := s.start(ctx, "Get", collection, attribute.String("docstore.id", id))

	data, err := s.next.Get(ctx, collection, id)
	if errors.Is(err, core.ErrNotFound) {
		span.SetAttributes(attribute.Bool("docstore.found", false))
		core.EndSpan(span, nil)
		return nil, err
	}

	core.EndSpan(span, err)
	return data, err
}

func (s *TracedStore) Put(
	ctx context.Context,
	collection, id string,
	data json.RawMessage,
) error {
	ctx, span := s.start(ctx, "Put", collection,
		attribute.String("docstore.id", id),
		attribute.Int("docstore.bytes", len(data)),
	)

	err := s.next.Put(ctx, collection, id, data)
	core.EndSpan(span, err)
	return err
}

func (s *TracedStore) Delete(ctx context.Context, collection, id string) error {
	ctx, span := s.start(ctx, "Delete", collection, attribute.String("docstore.id", id))

	err := s.next.Delete(ctx, collection, id)
	core.EndSpan(span, err)
	return err
}

func (s *TracedStore) List(
	ctx context.Context,
	collection string,
	params ListParams,
) ([]Document, int, error) {
	ctx, span := s.start(ctx, "List", collection,
		attribute.Int("docstore.page", params.Page),
		attribute.Int("docstore.page_size", params.PageSize),
	)

	docs, total, err := s.next.List(ctx, collection, params)
	span.SetAttributes(attribute.Int("docstore.total", total))
	core.EndSpan(span, err)
	return docs, total, err
}

func (s *TracedStore) Apply(ctx context.Context, writes []Write) error {
	ctx, span := s.start(ctx, "Apply", "batch", attribute.Int("docstore.writes", len(writes)))

	err := s.next.Apply(ctx, writes)
	core.EndSpan(span, err)
	return err
}

func (s *TracedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

var _ Store = (*TracedStore)(nil)
