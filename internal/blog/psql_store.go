package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/blogstore/internal/telemetry/tracing"
)

// manual caching of prepared statements not needed:
// https://github.com/jackc/pgx/wiki/Automatic-Prepared-Statement-Caching

var _ Store = (*PsqlStore)(nil)

// PsqlStore keeps each blog as a JSONB record in the blog_record table,
// see internal/db/migrations for the schema.
type PsqlStore struct {
	db *pgxpool.Pool
}

func NewPsqlStore(db *pgxpool.Pool) *PsqlStore {
	return &PsqlStore{
		db: db,
	}
}

func (s *PsqlStore) Put(ctx context.Context, id string, blog *Blog) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogPsqlStore.Put")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	record, err := json.Marshal(blog)
	if err != nil {
		return fmt.Errorf("marshal blog %s: %w", id, err)
	}

	_, err = s.db.Exec(
		ctx,
		`
			INSERT INTO blog_record (id, record, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record;
		`,
		id, record, blog.CreatedDate,
	)
	if err != nil {
		return fmt.Errorf("upsert blog %s: %w", id, err)
	}
	return nil
}

func (s *PsqlStore) Get(ctx context.Context, id string) (*Blog, error) {
	log.Tracef("getting blog %s", id)

	ctx, span := tracing.GlobalTracer.Start(ctx, "blogPsqlStore.Get")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	var record []byte
	err := s.db.QueryRow(ctx, `SELECT record FROM blog_record WHERE id = $1;`, id).Scan(&record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlogNotFound
		}
		return nil, fmt.Errorf("select blog %s: %w", id, err)
	}
	return unmarshalBlog(id, string(record))
}

func (s *PsqlStore) Values(ctx context.Context) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogPsqlStore.Values")
	defer span.End()

	rows, err := s.db.Query(ctx, `SELECT id, record FROM blog_record ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []*Blog{}
	for rows.Next() {
		var id string
		var record []byte
		if err := rows.Scan(&id, &record); err != nil {
			return nil, err
		}
		b, err := unmarshalBlog(id, string(record))
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

func (s *PsqlStore) Remove(ctx context.Context, id string) (*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogPsqlStore.Remove")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	var record []byte
	err := s.db.QueryRow(ctx, `DELETE FROM blog_record WHERE id = $1 RETURNING record;`, id).Scan(&record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Tracef("blog %s not removed, not found", id)
			return nil, nil
		}
		return nil, fmt.Errorf("delete blog %s: %w", id, err)
	}
	return unmarshalBlog(id, string(record))
}
