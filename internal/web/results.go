package web

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"

	"signaware-client/internal/results"
	"signaware-client/internal/shared/server/respond"
	"signaware-client/internal/shared/telemetry"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) result(c *gin.Context) {
	view := results.Load(c.Request.Context(), h.deps.Results)
	respond.OK(c, gin.H{
		"state":    view.State.Label(),
		"analysis": view.Analysis,
		"sections": view.Sections,
		"error":    view.Error,
	})
}

// chatFor returns the chat bound to the stored result, starting a new one
// when the stored result has changed since the last call.
func (h *Handler) chatFor(c *gin.Context) (*results.Chat, bool) {
	a, err := h.deps.Results.Load(c.Request.Context())
	switch {
	case errors.Is(err, results.ErrNoResult):
		respond.Error(c, http.StatusNotFound, "no_result", "No analysis results found", nil)
		return nil, false
	case errors.Is(err, results.ErrMalformedResult):
		respond.Error(c, http.StatusUnprocessableEntity, "malformed_result", "Failed to load analysis results", nil)
		return nil, false
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "storage_error", err.Error(), nil)
		return nil, false
	}

	h.chatMu.Lock()
	defer h.chatMu.Unlock()
	if h.chat != nil && h.chatAnalysis != nil && reflect.DeepEqual(*h.chatAnalysis, a) {
		return h.chat, true
	}
	if h.chat != nil {
		h.chat.Close()
	}
	h.chat = results.NewChat(a,
		results.WithRevealInterval(h.deps.RevealInterval),
		results.WithChatMetrics(h.deps.Metrics),
	)
	h.chatAnalysis = &a
	return h.chat, true
}

func (h *Handler) chatTranscript(c *gin.Context) {
	chat, ok := h.chatFor(c)
	if !ok {
		return
	}
	respond.OK(c, gin.H{"messages": chat.Messages()})
}

// chatSend streams the assistant reply as server-sent events: one "chunk"
// event per revealed piece, then a "message" event with the stored reply.
// A client disconnect cancels the reveal and the reply is dropped.
func (h *Handler) chatSend(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "message is required", nil)
		return
	}
	chat, ok := h.chatFor(c)
	if !ok {
		return
	}

	h.startStream(c)
	msg, err := chat.Send(c.Request.Context(), req.Message, func(chunk string) {
		c.SSEvent("chunk", gin.H{"text": chunk})
		c.Writer.Flush()
	})
	if err != nil {
		if c.Request.Context().Err() != nil {
			telemetry.Debug("web.chat_abandoned", map[string]any{"error": err})
			return
		}
		c.SSEvent("error", gin.H{"message": err.Error()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("message", msg)
	c.Writer.Flush()
}

func (h *Handler) startStream(c *gin.Context) {
	hdr := c.Writer.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
}
