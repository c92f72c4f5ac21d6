package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"signaware-client/internal/shared/telemetry"
	"signaware-client/internal/shared/util"
)

// ValidateFile checks size and extension against the configured limits.
func (c *Client) ValidateFile(f File) error {
	if c.maxFileSize > 0 && f.Size > c.maxFileSize {
		return validationErrorf("File size exceeds maximum limit of %sMB", formatMB(c.maxFileSize))
	}
	ext := util.FileExtension(f.Name, f.ContentType)
	if ext == "" || !c.extensionAllowed(ext) {
		return validationErrorf("File type not supported. Allowed types: %s", strings.Join(c.allowed, ", "))
	}
	return nil
}

func (c *Client) extensionAllowed(ext string) bool {
	for _, a := range c.allowed {
		if a == ext {
			return true
		}
	}
	return false
}

// UploadFile validates f, then posts it as multipart form field "file" to
// /documents/upload and returns the backend file id. onProgress may be nil; it
// is called from the transport's writer goroutine, never after UploadFile returns.
func (c *Client) UploadFile(ctx context.Context, f File, onProgress func(UploadProgress)) (fileID string, err error) {
	if err := c.ValidateFile(f); err != nil {
		return "", err
	}
	if f.Content == nil {
		return "", validationErrorf("File %s has no content", f.Name)
	}

	ctx, span := tracer.Start(ctx, "gateway.upload", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("file.name", f.Name), attribute.Int64("file.size", f.Size))
	start := time.Now()
	status := 0
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.metrics.ObserveGatewayCall("upload", status, time.Since(start).Seconds())
	}()

	body, contentType, err := c.multipartBody(f)
	if err != nil {
		return "", err
	}
	total := int64(body.Len())
	pr := &progressReader{r: bytes.NewReader(body.Bytes()), total: total, emit: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload", pr)
	if err != nil {
		return "", &TransportError{Message: "invalid request: " + err.Error(), Err: err}
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.close(false)
		telemetry.Error("gateway.upload.failed", map[string]any{"file": f.Name, "error": err.Error()})
		if tErr, ok := networkError(err).(*TransportError); ok && tErr.Message != "request cancelled" {
			tErr.Message = "Upload failed"
			return "", tErr
		}
		return "", networkError(err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	if resp.StatusCode != http.StatusCreated {
		pr.close(false)
		msg := errorMessage(raw, fmt.Sprintf("Upload failed with status: %d", resp.StatusCode))
		telemetry.Error("gateway.upload.rejected", map[string]any{"file": f.Name, "status": resp.StatusCode, "message": msg})
		return "", &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}

	var created struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		pr.close(false)
		return "", &TransportError{StatusCode: resp.StatusCode, Message: "Invalid response format", Err: err}
	}
	id, err := decodeID(created.ID)
	if err != nil || id == "" {
		pr.close(false)
		return "", &TransportError{StatusCode: resp.StatusCode, Message: "Invalid response format", Err: err}
	}

	pr.close(true)
	c.metrics.AddUploadBytes(total)
	telemetry.Info("gateway.upload.complete", map[string]any{"file": f.Name, "file_id": id, "bytes": total})
	return id, nil
}

// multipartBody buffers the form so the total length is known for progress.
// The configured maximum also caps how much is read when Size understates the content.
func (c *Client) multipartBody(f File) (*bytes.Buffer, string, error) {
	name, err := util.SanitizeFileName(f.Name)
	if err != nil {
		return nil, "", validationErrorf("Invalid file name %q", f.Name)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}

	src := f.Content
	if c.maxFileSize > 0 {
		src = io.LimitReader(src, c.maxFileSize+1)
	}
	n, err := io.Copy(part, src)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", f.Name, err)
	}
	if c.maxFileSize > 0 && n > c.maxFileSize {
		return nil, "", validationErrorf("File size exceeds maximum limit of %sMB", formatMB(c.maxFileSize))
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// progressReader reports bytes consumed by the transport. Samples are
// non-decreasing; close(true) guarantees a final 100% sample.
type progressReader struct {
	r     io.Reader
	total int64
	emit  func(UploadProgress)

	mu       sync.Mutex
	loaded   int64
	lastPct  int
	reported bool
	closed   bool
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.loaded += int64(n)
		p.report()
		p.mu.Unlock()
	}
	return n, err
}

// report must be called with mu held.
func (p *progressReader) report() {
	if p.closed || p.emit == nil {
		return
	}
	pct := percentage(p.loaded, p.total)
	if p.reported && pct == p.lastPct && p.loaded < p.total {
		return
	}
	p.reported = true
	p.lastPct = pct
	p.emit(UploadProgress{Loaded: p.loaded, Total: p.total, Percentage: pct})
}

func (p *progressReader) close(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if success && p.emit != nil && (!p.reported || p.lastPct < 100) {
		p.loaded = p.total
		p.emit(UploadProgress{Loaded: p.total, Total: p.total, Percentage: 100})
	}
	p.closed = true
}

func percentage(loaded, total int64) int {
	if total <= 0 {
		return 100
	}
	pct := int(math.Round(float64(loaded) / float64(total) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

func formatMB(bytes int64) string {
	mb := float64(bytes) / 1024 / 1024
	return fmt.Sprintf("%g", math.Round(mb*100)/100)
}

// UploadTask is an in-flight upload exposed as a finite progress stream.
type UploadTask struct {
	progress chan UploadProgress
	done     chan struct{}
	cancel   context.CancelFunc
	fileID   string
	err      error
}

// StartUpload runs UploadFile in the background. Progress is closed when
// the upload ends. A reader that falls behind skips older samples and
// always sees the latest; Wait does not require draining Progress.
func (c *Client) StartUpload(ctx context.Context, f File) *UploadTask {
	ctx, cancel := context.WithCancel(ctx)
	t := &UploadTask{
		progress: make(chan UploadProgress, 16),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go func() {
		defer close(t.done)
		defer close(t.progress)
		defer cancel()
		t.fileID, t.err = c.UploadFile(ctx, f, t.publish)
	}()
	return t
}

// publish never blocks. When the buffer is full the oldest sample is
// dropped, so order stays non-decreasing. Only the upload goroutine sends.
func (t *UploadTask) publish(p UploadProgress) {
	select {
	case t.progress <- p:
		return
	default:
	}
	select {
	case <-t.progress:
	default:
	}
	select {
	case t.progress <- p:
	default:
	}
}

// Progress yields samples in non-decreasing order until the upload ends.
func (t *UploadTask) Progress() <-chan UploadProgress {
	return t.progress
}

// Wait blocks until the upload ends and returns the file id.
func (t *UploadTask) Wait() (string, error) {
	<-t.done
	return t.fileID, t.err
}

// Cancel aborts the transfer. The backend is not notified.
func (t *UploadTask) Cancel() {
	t.cancel()
}
