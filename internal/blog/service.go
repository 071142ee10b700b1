package blog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/2beens/blogstore/internal/telemetry/tracing"
)

// Service implements the blog operations on top of a Store.
// Every operation runs as one step under the service mutex, so no operation
// ever sees the partial state of another one.
type Service struct {
	store  Store
	ids    IDGenerator
	clock  Clock
	caller CallerIdentity
	mutex  sync.RWMutex
}

func NewService(
	store Store,
	ids IDGenerator,
	clock Clock,
	caller CallerIdentity,
) *Service {
	return &Service{
		store:  store,
		ids:    ids,
		clock:  clock,
		caller: caller,
	}
}

func (s *Service) CreateBlog(ctx context.Context, payload BlogPayload) Result[*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.create")
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return finish(span, resultOf(s.createBlog(ctx, payload)))
}

func (s *Service) createBlog(ctx context.Context, payload BlogPayload) (*Blog, error) {
	if !payload.valid() {
		return nil, newError(ErrInvalidInput, "invalid payload input")
	}

	creationFailed := func(cause error) error {
		log.Errorf("create blog [%s]: %s", payload.Title, cause)
		return newError(ErrCreationFailed, "could not create blog title: %s", payload.Title)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, creationFailed(fmt.Errorf("generate id: %w", err))
	}
	if _, err := s.store.Get(ctx, id); err == nil {
		return nil, creationFailed(fmt.Errorf("id %s already taken", id))
	} else if !errors.Is(err, ErrBlogNotFound) {
		return nil, creationFailed(err)
	}

	blog := &Blog{
		ID:          id,
		Title:       payload.Title,
		Content:     payload.Content,
		Blogger:     s.caller.CurrentCaller(ctx),
		Likes:       0,
		Tags:        slices.Clone(payload.Tags),
		Category:    payload.Category,
		Comments:    []string{},
		UpdatedAt:   NoTime(),
		CreatedDate: s.clock.Now(),
	}

	if err := s.store.Put(ctx, id, blog); err != nil {
		return nil, creationFailed(err)
	}

	log.Tracef("new blog %s: [%s] added by %s", blog.ID, blog.Title, blog.Blogger)
	return blog, nil
}

func (s *Service) UpdateBlog(ctx context.Context, id string, payload BlogPayload) Result[*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.update")
	span.SetAttributes(attribute.String("id", id))
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return finish(span, resultOf(s.updateBlog(ctx, id, payload)))
}

func (s *Service) updateBlog(ctx context.Context, id string, payload BlogPayload) (*Blog, error) {
	if !payload.valid() {
		return nil, newError(ErrInvalidInput, "invalid payload input")
	}

	blog, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.caller.CurrentCaller(ctx) != blog.Blogger {
		return nil, newError(ErrUnauthorized, "unauthorized, only the blog owner can update the blog")
	}

	blog.Title = payload.Title
	blog.Content = payload.Content
	blog.Tags = slices.Clone(payload.Tags)
	blog.Category = payload.Category
	blog.UpdatedAt = TimeOf(s.clock.Now())

	if err := s.store.Put(ctx, id, blog); err != nil {
		return nil, err
	}
	return blog, nil
}

func (s *Service) GetAllBlogs(ctx context.Context) Result[[]*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.all")
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return finish(span, resultOf(s.filter(ctx, func(*Blog) bool { return true })))
}

func (s *Service) GetBlog(ctx context.Context, id string) Result[*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.get")
	span.SetAttributes(attribute.String("id", id))
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return finish(span, resultOf(s.get(ctx, id)))
}

// SearchBlogsByTitleAndContent matches blogs whose title or content contains
// the query, ignoring case.
func (s *Service) SearchBlogsByTitleAndContent(ctx context.Context, query string) Result[[]*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.search.text")
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	q := strings.ToLower(query)
	return finish(span, resultOf(s.filter(ctx, func(b *Blog) bool {
		return strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Content), q)
	})))
}

// SearchBlogsByTags matches blogs having a tag equal to the lower-cased query.
// Stored tags are compared as they are, so a stored "Go" is never found.
func (s *Service) SearchBlogsByTags(ctx context.Context, query string) Result[[]*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.search.tags")
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	q := strings.ToLower(query)
	return finish(span, resultOf(s.filter(ctx, func(b *Blog) bool {
		return slices.Contains(b.Tags, q)
	})))
}

// SearchBlogsByCategory matches blogs whose category contains the query, ignoring case.
func (s *Service) SearchBlogsByCategory(ctx context.Context, query string) Result[[]*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.search.category")
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	q := strings.ToLower(query)
	return finish(span, resultOf(s.filter(ctx, func(b *Blog) bool {
		return strings.Contains(strings.ToLower(b.Category), q)
	})))
}

func (s *Service) LikeBlog(ctx context.Context, id string) Result[*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.like")
	span.SetAttributes(attribute.String("id", id))
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return finish(span, resultOf(s.likeBlog(ctx, id)))
}

func (s *Service) likeBlog(ctx context.Context, id string) (*Blog, error) {
	blog, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.caller.CurrentCaller(ctx) == blog.Blogger {
		return nil, newError(ErrForbidden, "not allowed, you cannot like your own blog")
	}

	blog.Likes++
	if err := s.store.Put(ctx, id, blog); err != nil {
		return nil, err
	}
	return blog, nil
}

func (s *Service) CommentBlog(ctx context.Context, id, comment string) Result[*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.comment")
	span.SetAttributes(attribute.String("id", id))
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return finish(span, resultOf(s.commentBlog(ctx, id, comment)))
}

func (s *Service) commentBlog(ctx context.Context, id, comment string) (*Blog, error) {
	blog, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	blog.Comments = append(blog.Comments, comment)
	if err := s.store.Put(ctx, id, blog); err != nil {
		return nil, err
	}
	return blog, nil
}

func (s *Service) GetBlogComments(ctx context.Context, id string) Result[[]string] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.comments")
	span.SetAttributes(attribute.String("id", id))
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return finish(span, resultOf(s.getBlogComments(ctx, id)))
}

func (s *Service) getBlogComments(ctx context.Context, id string) ([]string, error) {
	blog, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(blog.Comments) == 0 {
		return nil, newError(ErrEmptyResult, "no comments found for blog id: %s", id)
	}
	return blog.Comments, nil
}

func (s *Service) DeleteBlog(ctx context.Context, id string) Result[*Blog] {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.delete")
	span.SetAttributes(attribute.String("id", id))
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return finish(span, resultOf(s.deleteBlog(ctx, id)))
}

func (s *Service) deleteBlog(ctx context.Context, id string) (*Blog, error) {
	blog, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.caller.CurrentCaller(ctx) != blog.Blogger {
		return nil, newError(ErrUnauthorized, "unauthorized, only the blog owner can delete the blog")
	}

	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	if removed != nil {
		blog = removed
	}

	log.Tracef("blog %s: [%s] deleted", blog.ID, blog.Title)
	return blog, nil
}

func (s *Service) get(ctx context.Context, id string) (*Blog, error) {
	blog, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return blog, nil
}

// filter does a full scan of the store; no matches is an ErrEmptyResult.
func (s *Service) filter(ctx context.Context, match func(*Blog) bool) ([]*Blog, error) {
	all, err := s.store.Values(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*Blog
	for _, b := range all {
		if match(b) {
			matched = append(matched, b)
		}
	}
	if len(matched) == 0 {
		return nil, noBlogsFound()
	}
	return matched, nil
}

func finish[T any](span trace.Span, res Result[T]) Result[T] {
	if err := res.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	span.End()
	return res
}
