// Package api exposes the journal over HTTP with gin: the legacy upload and
// stream routes, account management and the authenticated recordings API.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/logging"
	"github.com/dmitrijs2005/captainslog/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Config tunes the router.
type Config struct {
	StaticDir      string
	MaxUploadBytes int64
	PresignTTL     time.Duration
}

type Handler struct {
	users      *services.UserService
	recordings *services.RecordingService
	log        logging.Logger
	cfg        Config
	now        func() time.Time
}

func NewHandler(users *services.UserService, recordings *services.RecordingService, log logging.Logger, cfg Config) *Handler {
	return &Handler{users: users, recordings: recordings, log: log, cfg: cfg, now: time.Now}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(h.log), recovery(h.log))
	if h.cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = h.cfg.MaxUploadBytes
	}

	api := r.Group("/api")
	api.GET("/health", h.health)

	api.POST("/recordings/:id/upload", optionalAuth(h.users), h.upload)
	api.GET("/recordings/:id", h.stream)
	api.GET("/recordings/:id/url", h.audioURL)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/logout", h.logout)
	authGroup.POST("/password-reset", h.requestPasswordReset)
	authGroup.POST("/password-reset/confirm", h.confirmPasswordReset)

	priv := api.Group("", requireAuth(h.users))
	priv.GET("/users/me", h.me)
	priv.PATCH("/users/me", h.updateMe)
	priv.DELETE("/users/me", h.deleteMe)

	priv.GET("/recordings", h.listRecordings)
	priv.POST("/recordings", h.createRecording)
	priv.GET("/recordings/:id/transcription", h.transcription)
	priv.DELETE("/recordings/:id", h.deleteRecording)
	priv.GET("/recordings/:id/tags", h.recordingTags)
	priv.POST("/recordings/:id/tags/:name", h.tagRecording)
	priv.DELETE("/recordings/:id/tags/:name", h.untagRecording)
	priv.GET("/tags/:name/recordings", h.recordingsByTag)
	priv.GET("/search", h.search)

	r.NoRoute(h.spa)
	return r
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": h.now().UTC()})
}

// spa serves files of the static bundle and falls back to index.html for
// client side routes. Unknown /api paths stay JSON 404s.
func (h *Handler) spa(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusNotFound)
		return
	}

	rel := filepath.FromSlash(filepath.Clean("/" + c.Request.URL.Path))
	if p := filepath.Join(h.cfg.StaticDir, rel); rel != string(filepath.Separator) {
		if serveFile(c, p) {
			return
		}
	}

	if !serveFile(c, filepath.Join(h.cfg.StaticDir, "index.html")) {
		c.Status(http.StatusNotFound)
	}
}

// serveFile writes the regular file at path. c.File is not used because
// http.ServeFile rejects request paths containing "..", which must still
// fall back to index.html.
func serveFile(c *gin.Context, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		return false
	}
	http.ServeContent(c.Writer, c.Request, fi.Name(), fi.ModTime(), f)
	return true
}
