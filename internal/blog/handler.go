package blog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/blogstore/internal/telemetry/metrics"
	"github.com/2beens/blogstore/pkg"
)

type blogService interface {
	CreateBlog(ctx context.Context, payload BlogPayload) Result[*Blog]
	UpdateBlog(ctx context.Context, id string, payload BlogPayload) Result[*Blog]
	GetAllBlogs(ctx context.Context) Result[[]*Blog]
	GetBlog(ctx context.Context, id string) Result[*Blog]
	SearchBlogsByTitleAndContent(ctx context.Context, query string) Result[[]*Blog]
	SearchBlogsByTags(ctx context.Context, query string) Result[[]*Blog]
	SearchBlogsByCategory(ctx context.Context, query string) Result[[]*Blog]
	LikeBlog(ctx context.Context, id string) Result[*Blog]
	CommentBlog(ctx context.Context, id, comment string) Result[*Blog]
	GetBlogComments(ctx context.Context, id string) Result[[]string]
	DeleteBlog(ctx context.Context, id string) Result[*Blog]
}

var _ blogService = (*Service)(nil)

type commentRequest struct {
	Comment string `json:"comment"`
}

type Handler struct {
	service blogService
	metrics *metrics.Manager
}

func NewBlogHandler(
	service blogService,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		service: service,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/blog", handler.handleNewBlog).Methods("POST", "OPTIONS").Name("new-blog")
	router.HandleFunc("/blog/all", handler.handleAll).Methods("GET").Name("all-blogs")
	router.HandleFunc("/blog/search/text", handler.handleSearchText).Methods("GET").Name("search-blogs-text")
	router.HandleFunc("/blog/search/tags", handler.handleSearchTags).Methods("GET").Name("search-blogs-tags")
	router.HandleFunc("/blog/search/category", handler.handleSearchCategory).Methods("GET").Name("search-blogs-category")
	router.HandleFunc("/blog/{id}", handler.handleGetBlog).Methods("GET").Name("get-blog")
	router.HandleFunc("/blog/{id}", handler.handleUpdateBlog).Methods("PUT", "OPTIONS").Name("update-blog")
	router.HandleFunc("/blog/{id}", handler.handleDeleteBlog).Methods("DELETE", "OPTIONS").Name("delete-blog")
	router.HandleFunc("/blog/{id}/like", handler.handleLikeBlog).Methods("PATCH", "OPTIONS").Name("like-blog")
	router.HandleFunc("/blog/{id}/comments", handler.handleNewComment).Methods("POST", "OPTIONS").Name("new-comment")
	router.HandleFunc("/blog/{id}/comments", handler.handleGetComments).Methods("GET").Name("blog-comments")
}

func (handler *Handler) handleNewBlog(w http.ResponseWriter, r *http.Request) {
	var payload BlogPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Errorf("new blog, unmarshal json params: %s", err)
		http.Error(w, "add blog failed", http.StatusBadRequest)
		return
	}

	res := handler.service.CreateBlog(r.Context(), payload)
	writeResult(handler, w, "create", res, http.StatusCreated)
}

func (handler *Handler) handleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	var payload BlogPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Errorf("update blog, unmarshal json params: %s", err)
		http.Error(w, "update blog failed", http.StatusBadRequest)
		return
	}

	res := handler.service.UpdateBlog(r.Context(), mux.Vars(r)["id"], payload)
	writeResult(handler, w, "update", res, http.StatusOK)
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	res := handler.service.GetAllBlogs(r.Context())
	writeResult(handler, w, "all", res, http.StatusOK)
}

func (handler *Handler) handleGetBlog(w http.ResponseWriter, r *http.Request) {
	res := handler.service.GetBlog(r.Context(), mux.Vars(r)["id"])
	writeResult(handler, w, "get", res, http.StatusOK)
}

func (handler *Handler) handleSearchText(w http.ResponseWriter, r *http.Request) {
	res := handler.service.SearchBlogsByTitleAndContent(r.Context(), r.URL.Query().Get("q"))
	writeResult(handler, w, "search-text", res, http.StatusOK)
}

func (handler *Handler) handleSearchTags(w http.ResponseWriter, r *http.Request) {
	res := handler.service.SearchBlogsByTags(r.Context(), r.URL.Query().Get("q"))
	writeResult(handler, w, "search-tags", res, http.StatusOK)
}

func (handler *Handler) handleSearchCategory(w http.ResponseWriter, r *http.Request) {
	res := handler.service.SearchBlogsByCategory(r.Context(), r.URL.Query().Get("q"))
	writeResult(handler, w, "search-category", res, http.StatusOK)
}

func (handler *Handler) handleLikeBlog(w http.ResponseWriter, r *http.Request) {
	res := handler.service.LikeBlog(r.Context(), mux.Vars(r)["id"])
	writeResult(handler, w, "like", res, http.StatusOK)
}

func (handler *Handler) handleNewComment(w http.ResponseWriter, r *http.Request) {
	var commentReq commentRequest
	if err := json.NewDecoder(r.Body).Decode(&commentReq); err != nil {
		log.Errorf("new comment, unmarshal json params: %s", err)
		http.Error(w, "add comment failed", http.StatusBadRequest)
		return
	}

	res := handler.service.CommentBlog(r.Context(), mux.Vars(r)["id"], commentReq.Comment)
	writeResult(handler, w, "comment", res, http.StatusCreated)
}

func (handler *Handler) handleGetComments(w http.ResponseWriter, r *http.Request) {
	res := handler.service.GetBlogComments(r.Context(), mux.Vars(r)["id"])
	writeResult(handler, w, "comments", res, http.StatusOK)
}

func (handler *Handler) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	res := handler.service.DeleteBlog(r.Context(), mux.Vars(r)["id"])
	writeResult(handler, w, "delete", res, http.StatusOK)
}

// writeResult writes the value as JSON with okStatus, or the error message
// with the status matching the error kind.
func writeResult[T any](handler *Handler, w http.ResponseWriter, op string, res Result[T], okStatus int) {
	value, err := res.Unwrap()
	if err != nil {
		status := StatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Errorf("blog %s: %s", op, err)
		} else {
			log.Tracef("blog %s: %s", op, err)
		}
		handler.metrics.BlogOp(op, outcome(err))
		http.Error(w, err.Error(), status)
		return
	}

	handler.metrics.BlogOp(op, "ok")
	pkg.WriteJSON(w, value, okStatus)
}

// StatusCode maps a service error to the http status it is reported with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrBlogNotFound), errors.Is(err, ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func outcome(err error) string {
	var blogErr *Error
	if errors.As(err, &blogErr) {
		return blogErr.Kind.Error()
	}
	return "error"
}
