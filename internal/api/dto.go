package api

import (
	"github.com/starford/awesomeview/internal/filter"
	"github.com/starford/awesomeview/internal/library"
	"github.com/starford/awesomeview/internal/models"
)

// Item is an item in a list response (aliased from the domain layer).
type Item = models.Item

// ItemDetail is a single item with its description rendered to HTML.
type ItemDetail struct {
	models.Item
	DescriptionHTML string `json:"description_html" example:"<p>AI pair programmer by GitHub.</p>"`
}

// ItemListResponse wraps filtered item listings.
type ItemListResponse struct {
	Items   []Item          `json:"items" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
	Shown   int             `json:"shown" example:"3" validate:"required"`
	Summary filter.Summary  `json:"summary" validate:"required"`
	Status  string          `json:"status" example:"Showing 3 of 42 items" validate:"required"`
	Ignored *filter.Unknown `json:"ignored,omitempty"`
}

// CountResponse wraps topic or tag counts.
type CountResponse struct {
	Counts  []filter.Count  `json:"counts" validate:"required"`
	Ignored *filter.Unknown `json:"ignored,omitempty"`
}

// StatsResponse describes the loaded collection.
type StatsResponse struct {
	TotalItems    int             `json:"total_items" example:"42" validate:"required"`
	VisibleItems  int             `json:"visible_items" example:"40" validate:"required"`
	ExcludedItems int             `json:"excluded_items" example:"2" validate:"required"`
	Topics        int             `json:"topics" example:"3" validate:"required"`
	Tags          int             `json:"tags" example:"17" validate:"required"`
	ExcludeTags   []string        `json:"exclude_tags" validate:"required"`
	Report        *library.Report `json:"report"`
}

// RegenerateFailure is returned when no source could be loaded.
type RegenerateFailure struct {
	Error  string          `json:"error" validate:"required"`
	Report *library.Report `json:"report"`
}
