package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// AnalyzeDocument submits req for analysis. A file is uploaded first and then
// analyzed by id; otherwise the text is analyzed inline. onProgress only fires
// for file requests and may be nil.
func (c *Client) AnalyzeDocument(ctx context.Context, req AnalysisRequest, onProgress func(UploadProgress)) (AnalysisResponse, error) {
	switch req.Kind() {
	case "file":
		fileID, err := c.UploadFile(ctx, *req.File, onProgress)
		if err != nil {
			return AnalysisResponse{}, err
		}
		return c.AnalyzeFile(ctx, fileID)
	case "text":
		return c.AnalyzeText(ctx, req.Text)
	default:
		return AnalysisResponse{}, validationErrorf("Either file or text must be provided")
	}
}

// AnalyzeFile starts analysis of a previously uploaded file.
func (c *Client) AnalyzeFile(ctx context.Context, fileID string) (AnalysisResponse, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return AnalysisResponse{}, validationErrorf("file id is required")
	}
	var out AnalysisResponse
	err := c.do(ctx, call{
		name:     "analyze_file",
		method:   http.MethodPost,
		endpoint: "/documents/" + url.PathEscape(fileID) + "/analyze",
		body:     map[string]string{"fileId": fileID, "type": "file"},
		out:      &out,
	})
	if err != nil {
		return AnalysisResponse{}, err
	}
	return out, out.Validate()
}

// AnalyzeText analyzes raw document text.
func (c *Client) AnalyzeText(ctx context.Context, text string) (AnalysisResponse, error) {
	if strings.TrimSpace(text) == "" {
		return AnalysisResponse{}, validationErrorf("Either file or text must be provided")
	}
	var out AnalysisResponse
	err := c.do(ctx, call{
		name:     "analyze_text",
		method:   http.MethodPost,
		endpoint: "/analysis/analyze-text",
		body:     map[string]string{"content": text, "analysisType": "legal"},
		out:      &out,
	})
	if err != nil {
		return AnalysisResponse{}, err
	}
	return out, out.Validate()
}

// GetAnalysisStatus fetches the current state of analysis id.
func (c *Client) GetAnalysisStatus(ctx context.Context, id string) (AnalysisResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AnalysisResponse{}, validationErrorf("analysis id is required")
	}
	var out AnalysisResponse
	err := c.do(ctx, call{
		name:     "analysis_status",
		method:   http.MethodGet,
		endpoint: "/analyze/" + url.PathEscape(id),
		out:      &out,
	})
	if err != nil {
		return AnalysisResponse{}, err
	}
	return out, out.Validate()
}

// GetAnalysisHistory lists the caller's past analyses, newest first as the
// backend orders them. Entries are not validated individually.
func (c *Client) GetAnalysisHistory(ctx context.Context) ([]AnalysisResponse, error) {
	var out []AnalysisResponse
	err := c.do(ctx, call{
		name:     "analysis_history",
		method:   http.MethodGet,
		endpoint: "/analyze/history",
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetDashboard fetches aggregate stats and recent analyses.
func (c *Client) GetDashboard(ctx context.Context) (DashboardResponse, error) {
	var out DashboardResponse
	err := c.do(ctx, call{
		name:     "dashboard",
		method:   http.MethodGet,
		endpoint: "/dashboard",
		out:      &out,
	})
	return out, err
}

// HealthCheck pings the backend.
func (c *Client) HealthCheck(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, call{
		name:     "health",
		method:   http.MethodGet,
		endpoint: "/health",
		out:      &out,
	})
	return out, err
}
