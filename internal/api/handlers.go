package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docsight/internal/export"
	"docsight/internal/history"
	"docsight/internal/models"
	"docsight/internal/session"
)

// Handler wires HTTP routes to the analysis session and the history ledger.
type Handler struct {
	session  *session.Session
	ledger   *history.Ledger
	apiToken string
	log      *zap.SugaredLogger
}

// NewHandler constructs a Handler instance. apiToken may be empty, in which
// case the API is open.
func NewHandler(sess *session.Session, ledger *history.Ledger, apiToken string, log *zap.SugaredLogger) *Handler {
	return &Handler{
		session:  sess,
		ledger:   ledger,
		apiToken: apiToken,
		log:      log,
	}
}

// authMiddleware checks the static bearer token when one is configured.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiToken == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token != h.apiToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		c.Next()
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(h.authMiddleware())
	api.POST("/documents/analyze", h.analyzeDocument)
	api.GET("/session/status", h.sessionStatus)
	api.GET("/session/result", h.sessionResult)
	api.POST("/session/reset", h.resetSession)
	api.POST("/chat", h.chatAsk)
	api.GET("/chat/transcript", h.chatTranscript)
	api.GET("/history", h.historyList)
	api.DELETE("/history", h.historyClear)
	api.GET("/export", h.exportResult)
}

func (h *Handler) analyzeDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer file.Close()

	result, err := h.session.Process(
		c.Request.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
		fileHeader.Size,
	)
	if err != nil {
		h.writePipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) writePipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSizeExceeded):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrServiceUnavailable), errors.Is(err, models.ErrSchemaMismatch):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.log.Errorw("analyze request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	}
}

func (h *Handler) sessionStatus(c *gin.Context) {
	machine := h.session.Machine()
	c.JSON(http.StatusOK, gin.H{
		"phase": machine.Phase(),
		"cause": machine.FailureCause(),
	})
}

func (h *Handler) sessionResult(c *gin.Context) {
	result := h.session.Result()
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis result is active"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) resetSession(c *gin.Context) {
	if err := h.session.Reset(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot reset while a run is in flight"})
		return
	}
	c.Status(http.StatusNoContent)
}

type chatRequest struct {
	Question string `json:"question"`
}

func (h *Handler) chatAsk(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question required"})
		return
	}

	turn, err := h.session.Ask(c.Request.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoAnalysis):
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrAlreadyInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrServiceUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			h.log.Errorw("chat request failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "chat failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": turn.Text, "turn_id": turn.ID})
}

func (h *Handler) chatTranscript(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"turns": h.session.Transcript()})
}

func (h *Handler) historyList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": h.ledger.List()})
}

func (h *Handler) historyClear(c *gin.Context) {
	h.ledger.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

var exportContentTypes = map[export.Format]string{
	export.FormatDocument:  "application/msword",
	export.FormatMarkdown:  "text/markdown; charset=utf-8",
	export.FormatJSON:      "application/json",
	export.FormatPlainText: "text/plain; charset=utf-8",
}

func (h *Handler) exportResult(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := h.session.Result()
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis result is active"})
		return
	}

	data, ext, err := export.Render(result, format)
	if err != nil {
		h.log.Errorw("export failed", "format", format, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	name := result.SuggestedFilename
	if name == "" {
		name = "analysis"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+ext))
	c.Data(http.StatusOK, exportContentTypes[format], data)
}
