package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/awesomeview/internal/apperr"
	"github.com/starford/awesomeview/internal/collection"
	"github.com/starford/awesomeview/internal/filter"
	"github.com/starford/awesomeview/internal/library"
)

const maxLimit = 1000

// Library is the part of *library.Library the API reads and reloads.
type Library interface {
	Collection() *collection.Collection
	LastReport() *library.Report
	Regenerate() (*library.Report, error)
}

// Publisher receives reload notifications, typically an *sse.Broker.
type Publisher interface {
	PublishReload(data any)
	PublishReloadFailed(err error)
}

// Handler holds API route handlers.
type Handler struct {
	lib Library
	pub Publisher
	md  goldmark.Markdown
}

// NewHandler creates a new Handler. pub may be nil.
func NewHandler(lib Library, pub Publisher) *Handler {
	return &Handler{
		lib: lib,
		pub: pub,
		md:  goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
	}
}

// itemsQuery is the filter part of a query string, shared by the items,
// topics and tags endpoints. Topics and tags may repeat.
type itemsQuery struct {
	Query  string
	Topics []string
	Tags   []string
	Mode   string
	Limit  int
	Offset int
}

func (q *itemsQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Query, validation.Length(0, 256)),
		validation.Field(&q.Mode, validation.By(func(value any) error {
			_, err := filter.ParseTagMode(value.(string))
			if err != nil {
				return errors.New("must be and or or")
			}
			return nil
		})),
		validation.Field(&q.Limit, validation.Min(0), validation.Max(maxLimit)),
		validation.Field(&q.Offset, validation.Min(0)),
	)
}

func parseItemsQuery(values url.Values) (*itemsQuery, error) {
	q := &itemsQuery{
		Query:  values.Get("q"),
		Topics: values["topic"],
		Tags:   values["tag"],
		Mode:   values.Get("mode"),
	}
	var err error
	if s := values.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return nil, validation.Errors{"limit": errors.New("must be an integer")}
		}
	}
	if s := values.Get("offset"); s != "" {
		if q.Offset, err = strconv.Atoi(s); err != nil {
			return nil, validation.Errors{"offset": errors.New("must be an integer")}
		}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// engine builds a filter engine over the current collection. Unknown topics
// and tags are skipped, as the interactive pickers do, and returned so the
// response can name them.
func (q *itemsQuery) engine(c *collection.Collection) (*filter.Engine, filter.Unknown) {
	mode, _ := filter.ParseTagMode(q.Mode)
	e := filter.New(c)
	e.SetSearchQuery(q.Query)
	e.SetTagFilterMode(mode)
	return e, e.Select(q.Topics, q.Tags)
}

func (h *Handler) engineFor(w http.ResponseWriter, r *http.Request) (*itemsQuery, *filter.Engine, *filter.Unknown, bool) {
	q, err := parseItemsQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, nil, false
	}
	e, unknown := q.engine(h.lib.Collection())
	if unknown.Empty() {
		return q, e, nil, true
	}
	return q, e, &unknown, true
}

// ListItems handles GET /api/items.
//
//	@Summary		List items matching a search and topic/tag filters
//	@Tags			items
//	@Produce		json
//	@Param			q		query		string		false	"Case-insensitive substring"
//	@Param			topic	query		[]string	false	"Topic filter (repeatable)"
//	@Param			tag		query		[]string	false	"Tag filter (repeatable)"
//	@Param			mode	query		string		false	"Tag combination"	Enums(or, and)
//	@Param			limit	query		int			false	"Page size"
//	@Param			offset	query		int			false	"Page offset"
//	@Success		200		{object}	ItemListResponse
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q, e, unknown, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	items := e.FilteredItems()
	shown := len(items)
	if q.Offset >= len(items) {
		items = items[:0]
	} else {
		items = items[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	status := e.Status()
	if unknown != nil {
		status += " (ignored " + unknown.String() + ")"
	}
	writeJSON(w, http.StatusOK, ItemListResponse{
		Items:   items,
		Total:   e.Collection().Len(),
		Shown:   shown,
		Summary: e.Summary(),
		Status:  status,
		Ignored: unknown,
	})
}

// GetItem handles GET /api/items/{id}.
//
//	@Summary		Get a single item with its description rendered to HTML
//	@Tags			items
//	@Produce		json
//	@Param			id	path		int	true	"Item id"
//	@Success		200	{object}	ItemDetail
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/items/{id} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	it, ok := h.lib.Collection().Item(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	detail := ItemDetail{Item: it}
	if desc := it.DescriptionString(); desc != "" {
		var buf bytes.Buffer
		if err := h.md.Convert([]byte(desc), &buf); err != nil {
			slog.Error("render description failed", slog.Int("id", id), slog.String("error", err.Error()))
		} else {
			detail.DescriptionHTML = strings.TrimSpace(buf.String())
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListTopics handles GET /api/topics.
//
//	@Summary		Topic counts under the current search and tag filters
//	@Tags			items
//	@Produce		json
//	@Success		200	{object}	CountResponse
//	@Failure		400	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/topics [get]
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	_, e, unknown, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Counts: e.TopicList(), Ignored: unknown})
}

// ListTags handles GET /api/tags.
//
//	@Summary		Tag counts under the current search and topic filters
//	@Tags			items
//	@Produce		json
//	@Success		200	{object}	CountResponse
//	@Failure		400	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	_, e, unknown, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Counts: e.TagList(), Ignored: unknown})
}

// Stats handles GET /api/stats.
//
//	@Summary		Collection totals and the last load report
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewStats(h.lib.Collection(), h.lib.LastReport()))
}

// NewStats summarizes a collection and its load report.
func NewStats(c *collection.Collection, report *library.Report) StatsResponse {
	exclude := c.ExcludeTags()
	if exclude == nil {
		exclude = []string{}
	}
	return StatsResponse{
		TotalItems:    c.TotalCount(),
		VisibleItems:  c.Len(),
		ExcludedItems: c.ExcludedCount(),
		Topics:        len(c.Topics()),
		Tags:          len(c.Tags()),
		ExcludeTags:   exclude,
		Report:        report,
	}
}

// Regenerate handles POST /api/regenerate.
//
//	@Summary		Re-parse the sources and rewrite the cache
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	library.Report
//	@Failure		422	{object}	RegenerateFailure
//	@Security		BearerAuth
//	@Router			/regenerate [post]
func (h *Handler) Regenerate(w http.ResponseWriter, _ *http.Request) {
	report, err := h.lib.Regenerate()
	if err != nil {
		if h.pub != nil {
			h.pub.PublishReloadFailed(err)
		}
		if errors.Is(err, apperr.ErrConfiguration) {
			writeJSON(w, http.StatusUnprocessableEntity, RegenerateFailure{
				Error:  err.Error(),
				Report: report,
			})
			return
		}
		slog.Error("regenerate failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.pub != nil {
		h.pub.PublishReload(report)
	}
	writeJSON(w, http.StatusOK, report)
}
