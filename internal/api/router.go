// Package api exposes text and voice turns over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"orderagent/internal/agent"
	"orderagent/internal/audiostore"
)

const (
	maxAudioBytes = 10 << 20
	audioPrefix   = "/agent/audio/"
)

type Agent interface {
	HandleTextTurn(ctx context.Context, text string, tableHint int) (agent.Turn, error)
	HandleVoiceTurn(ctx context.Context, audio []byte, filename string, tableHint int) (agent.Turn, error)
	VoiceEnabled() bool
}

type TextRequest struct {
	Text  string `json:"text" binding:"required"`
	Table int    `json:"table" binding:"omitempty,min=1"`
}

type TurnResponse struct {
	TurnID     string `json:"turn_id"`
	Reply      string `json:"reply"`
	Intent     string `json:"intent,omitempty"`
	Table      int    `json:"table,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	AudioRef   string `json:"audio_ref,omitempty"`
}

type handler struct {
	agent  Agent
	audio  audiostore.Store
	logger *slog.Logger
}

// NewRouter wires the turn endpoints. audio may be nil when no reply audio
// is produced. An empty origins list allows every origin.
func NewRouter(a Agent, audio audiostore.Store, origins []string, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{agent: a, audio: audio, logger: logger}

	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddExposeHeaders("Content-Length")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors.New(corsConfig))
	r.MaxMultipartMemory = maxAudioBytes

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/agent/text", h.text)
	r.POST("/agent/voice", h.voice)
	r.GET(audioPrefix+":id", h.getAudio)

	return r
}

func (h *handler) text(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	turn, err := h.agent.HandleTextTurn(c.Request.Context(), req.Text, req.Table)
	h.respond(c, turn, err)
}

func (h *handler) voice(c *gin.Context) {
	if !h.agent.VoiceEnabled() {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "voice channel is disabled"})
		return
	}

	var form struct {
		Table int `form:"table" binding:"omitempty,min=1"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"audio\" is required"})
		return
	}
	if fh.Size > maxAudioBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxAudioBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	turn, err := h.agent.HandleVoiceTurn(c.Request.Context(), data, fh.Filename, form.Table)
	h.respond(c, turn, err)
}

func (h *handler) respond(c *gin.Context, turn agent.Turn, err error) {
	resp := TurnResponse{
		TurnID: turn.ID,
		Reply:  turn.Reply,
		Intent: string(turn.Intent),
		Table:  turn.Table,
	}
	if turn.Channel == agent.ChannelVoice {
		resp.Transcript = turn.Input
	}
	if turn.Audio != nil {
		resp.AudioRef = AudioPath(turn.Audio.ID)
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h *handler) getAudio(c *gin.Context) {
	if h.audio == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audio not found"})
		return
	}

	obj, err := h.audio.Open(c.Request.Context(), c.Param("id"))
	if errors.Is(err, audiostore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "audio not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to open audio", "id", c.Param("id"), "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audio unavailable"})
		return
	}
	defer obj.Close()

	c.Header("Cache-Control", "private, max-age="+maxAge(obj.ExpiresAt))
	c.DataFromReader(http.StatusOK, -1, obj.ContentType, obj, nil)
}

// AudioPath is the URL path a stored clip is served from.
func AudioPath(id string) string {
	return path.Join(audioPrefix, id)
}

func maxAge(exp time.Time) string {
	secs := int(time.Until(exp).Seconds())
	if secs < 0 {
		secs = 0
	}
	return strconv.Itoa(secs)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}
