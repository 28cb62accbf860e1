package handlers

import (
	"net/http"

	"corpusdash/internal/config"
	"corpusdash/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) view(name string) (config.ViewConfig, error) {
	if v, ok := h.Views[name]; ok {
		return v, nil
	}
	for _, v := range h.Views {
		if v.Route == name {
			return v, nil
		}
	}
	return config.ViewConfig{}, domain.NotFoundError{Resource: "view " + name}
}

// Table serves /api/<route> for one configured view.
func (h *Handler) Table(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.view(route)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		page, err := h.Tables.Page(c.Request.Context(), view, c.Request.URL.Query())
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

type viewInfo struct {
	Route        string          `json:"route"`
	Title        string          `json:"title,omitempty"`
	Kind         string          `json:"kind"`
	DefaultSort  domain.Sort     `json:"defaultSort"`
	SearchFields []string        `json:"searchFields"`
	FilterFields []string        `json:"filterFields,omitempty"`
	Columns      []config.Column `json:"columns"`
}

// ListViews lists the configured tables so clients can build their columns.
func (h *Handler) ListViews(c *gin.Context) {
	cfg := config.Config{Views: h.Views}
	out := make([]viewInfo, 0, len(h.Views))
	for _, name := range cfg.ViewNames() {
		v := h.Views[name]
		out = append(out, viewInfo{
			Route:        v.Route,
			Title:        v.Title,
			Kind:         v.Kind,
			DefaultSort:  v.Sort(),
			SearchFields: nonNil(v.SearchFields),
			FilterFields: v.FilterFields,
			Columns:      nonNilColumns(v.Columns),
		})
	}
	c.JSON(http.StatusOK, gin.H{"views": out})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilColumns(s []config.Column) []config.Column {
	if s == nil {
		return []config.Column{}
	}
	return s
}
