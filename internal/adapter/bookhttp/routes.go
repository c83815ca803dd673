package bookhttp

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts every HTTP route on the echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/v1/chat", h.Chat)
	e.POST("/v1/chat/stream", h.ChatStream)
	e.POST("/v1/ingest", h.Ingest)
	e.GET("/v1/ingest/jobs/:id", h.GetIngestJob)
	e.GET("/v1/corpora/:corpus_id/units", h.ListCorpusUnits)
	e.DELETE("/v1/corpora/:corpus_id", h.PurgeCorpus)
	e.GET("/v1/health", h.Health)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}
