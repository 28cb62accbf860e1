// Package handlers implements the corpusdash HTTP endpoints.
package handlers

import (
	"context"
	"sync"

	"corpusdash/internal/config"
	"corpusdash/internal/files"
	"corpusdash/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether the data store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the dependencies shared by every endpoint. It is built
// once at startup.
type Handler struct {
	Views   map[string]config.ViewConfig
	Tables  services.TableService
	Reports services.ReportService
	Files   files.Source
	Store   Pinger
	Log     *zap.Logger

	routerMu sync.RWMutex
	router   *gin.Engine
}

func (h *Handler) log() *zap.Logger {
	if h.Log != nil {
		return h.Log
	}
	return zap.NewNop()
}

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func (h *Handler) SetRouter(r *gin.Engine) {
	h.routerMu.Lock()
	defer h.routerMu.Unlock()
	h.router = r
}
