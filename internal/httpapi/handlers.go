// Package httpapi exposes the guest store over HTTP: the public RSVP
// endpoints behind each personal link and the admin API.
package httpapi

import (
	"errors"
	"net/http"

	"henna-rsvp/internal/kv"
	"henna-rsvp/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MaxPartySize is the largest party a guest can register on the RSVP page
const MaxPartySize = 5

// maxImportSize bounds uploaded spreadsheets
const maxImportSize = 10 << 20

type Config struct {
	BaseURL       string
	AdminUsername string
	AdminPassword string
}

// AdminEnabled reports whether the admin API has a credential to check
func (c Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

type Handlers struct {
	store  *storage.Store
	config Config
	log    zerolog.Logger
}

func New(store *storage.Store, cfg Config, log zerolog.Logger) *Handlers {
	return &Handlers{
		store:  store,
		config: cfg,
		log:    log.With().Str("component", "HTTP").Logger(),
	}
}

// Router builds the gin engine. The admin group is only mounted when a
// credential is configured.
func (h *Handlers) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	api := router.Group("/api")
	{
		api.GET("/rsvp/:guest_id", h.GetInvitation)
		api.POST("/rsvp/:guest_id", h.SubmitRSVP)
	}

	if h.config.AdminEnabled() {
		admin := api.Group("/admin", gin.BasicAuth(gin.Accounts{
			h.config.AdminUsername: h.config.AdminPassword,
		}))
		{
			admin.GET("/guests", h.ListGuests)
			admin.POST("/guests", h.CreateGuest)
			admin.GET("/guests/:guest_id", h.GetGuest)
			admin.PUT("/guests/:guest_id", h.UpdateGuest)
			admin.DELETE("/guests/:guest_id", h.DeleteGuest)
			admin.POST("/guests/delete", h.DeleteGuests)
			admin.GET("/guests/:guest_id/link", h.GetShareLink)
			admin.POST("/import", h.ImportGuests)
			admin.GET("/export", h.ExportGuests)
			admin.GET("/stats", h.GetStats)
			admin.GET("/settings", h.GetSettings)
			admin.PUT("/settings", h.UpdateSettings)
			admin.POST("/groups", h.AddGroup)
			admin.DELETE("/groups/:group", h.RemoveGroup)
		}
	} else {
		h.log.Warn().Msg("Admin API disabled, no admin password configured")
	}

	return router
}

func (h *Handlers) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Msg("Request")
	}
}

// storeError maps store failures to a response. Write failures are
// reported as retryable.
func (h *Handlers) storeError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrGuestNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "guest not found"})
		return
	}
	var werr *kv.WriteError
	if errors.As(err, &werr) {
		h.log.Error().Err(err).Msg("Storage write failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not save changes, please try again"})
		return
	}
	h.log.Error().Err(err).Msg("Storage failure")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
