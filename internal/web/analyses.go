package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"signaware-client/internal/gateway"
	"signaware-client/internal/shared/server/middleware"
	"signaware-client/internal/shared/server/respond"
	"signaware-client/internal/shared/telemetry"
	"signaware-client/internal/workflow"
)

// multipartOverhead is allowed on top of the file size limit for form framing.
const multipartOverhead = 1 << 20

type textRequest struct {
	Text string `json:"text"`
}

// submit accepts a multipart file or a JSON text body and starts the
// workflow in the background. Progress is read from GET /analyses/state.
func (h *Handler) submit(c *gin.Context) {
	req, ok := h.bindAnalysisRequest(c)
	if !ok {
		return
	}
	if req.Empty() {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Either file or text must be provided", nil)
		return
	}

	kind := req.Kind()
	go h.run(req)
	respond.JSON(c, http.StatusAccepted, gin.H{"accepted": true, "kind": kind})
}

func (h *Handler) bindAnalysisRequest(c *gin.Context) (gateway.AnalysisRequest, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var body textRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return gateway.AnalysisRequest{}, false
		}
		return gateway.AnalysisRequest{Text: body.Text}, true
	}

	if h.deps.MaxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxFileSize+multipartOverhead)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error",
				fmt.Sprintf("File size exceeds maximum limit of %gMB", float64(h.deps.MaxFileSize)/(1<<20)), nil)
			return gateway.AnalysisRequest{}, false
		}
		// A multipart body without a file may still carry text.
		if text := c.PostForm("text"); strings.TrimSpace(text) != "" {
			return gateway.AnalysisRequest{Text: text}, true
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "Either file or text must be provided", nil)
		return gateway.AnalysisRequest{}, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return gateway.AnalysisRequest{}, false
	}
	defer file.Close()
	// The form file is removed when the request ends, so buffer it for the
	// background submission.
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return gateway.AnalysisRequest{}, false
	}

	return gateway.AnalysisRequest{File: &gateway.File{
		Name:        fileHeader.Filename,
		Size:        int64(len(data)),
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     bytes.NewReader(data),
	}}, true
}

// run drives one submission to completion, following a processing result
// until the backend settles it.
func (h *Handler) run(req gateway.AnalysisRequest) {
	ctx := h.deps.Background
	pending, err := h.deps.Submissions.Submit(ctx, req)
	if err != nil {
		telemetry.Warn("web.submit_failed", map[string]any{"kind": req.Kind(), "error": err})
		return
	}
	if pending == "" {
		return
	}
	if _, err := h.deps.Submissions.AwaitResult(ctx, pending); err != nil {
		if errors.Is(err, workflow.ErrSuperseded) {
			return
		}
		telemetry.Warn("web.await_failed", map[string]any{"analysis_id": pending, "error": err})
	}
}

func (h *Handler) state(c *gin.Context) {
	snap := h.deps.Submissions.Snapshot()
	if snap.AnalysisID != "" {
		c.Set(middleware.AnalysisIDKey, snap.AnalysisID)
	}
	respond.OK(c, gin.H{
		"state":      snap.State,
		"progress":   snap.Progress,
		"error":      snap.Error,
		"analysisId": snap.AnalysisID,
		"busy":       snap.Busy(),
	})
}

func (h *Handler) clearError(c *gin.Context) {
	h.deps.Submissions.ClearError()
	respond.NoContent(c)
}

func (h *Handler) history(c *gin.Context) {
	items, err := h.deps.Backend.GetAnalysisHistory(c.Request.Context())
	if err != nil {
		gatewayError(c, err)
		return
	}
	if items == nil {
		items = []gateway.AnalysisResponse{}
	}
	respond.OK(c, gin.H{"analyses": items})
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.deps.Backend.GetDashboard(c.Request.Context())
	if err != nil {
		gatewayError(c, err)
		return
	}
	respond.OK(c, d)
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"ok": true}
	if h.deps.Backend == nil {
		respond.OK(c, resp)
		return
	}
	backend, err := h.deps.Backend.HealthCheck(c.Request.Context())
	if err != nil {
		resp["backend"] = gin.H{"status": "unreachable", "error": err.Error()}
	} else {
		resp["backend"] = backend
	}
	respond.OK(c, resp)
}
