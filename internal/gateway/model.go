package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Status is the lifecycle state of an analysis on the backend.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// File is a document to upload. Content is read once.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

// OpenFile stats and opens path for upload. Callers must Close the result.
func OpenFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return File{}, err
	}
	if info.IsDir() {
		f.Close()
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	name := filepath.Base(path)
	return File{
		Name:        name,
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Content:     f,
	}, nil
}

// Close closes Content when it is closable.
func (f File) Close() error {
	if c, ok := f.Content.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// AnalysisRequest carries either a file or raw text. A file wins when both are set.
type AnalysisRequest struct {
	File *File
	Text string
}

// Empty reports whether the request has neither file nor text.
func (r AnalysisRequest) Empty() bool {
	return r.File == nil && strings.TrimSpace(r.Text) == ""
}

// Kind returns "file", "text" or "" for metrics and logs.
func (r AnalysisRequest) Kind() string {
	switch {
	case r.File != nil:
		return "file"
	case strings.TrimSpace(r.Text) != "":
		return "text"
	default:
		return ""
	}
}

// Analysis is the structured result produced by the backend.
type Analysis struct {
	RiskScore       float64  `json:"risk_score"`
	Summary         string   `json:"summary"`
	RiskAssessment  string   `json:"risk_assessment"`
	KeyConcerns     []string `json:"key_concerns"`
	RedFlags        []string `json:"red_flags"`
	Loopholes       []string `json:"loopholes,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	DocumentTitle   string   `json:"document_title,omitempty"`

	// Extra holds payload fields this client does not model, such as
	// riskLevel or complianceIssues. They survive a decode/encode round trip.
	Extra map[string]json.RawMessage `json:"-"`
}

var analysisFields = []string{
	"risk_score", "summary", "risk_assessment", "key_concerns",
	"red_flags", "loopholes", "recommendations", "document_title",
}

func (a *Analysis) UnmarshalJSON(data []byte) error {
	type plain Analysis
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range analysisFields {
		delete(all, k)
	}
	a.Extra = nil
	if len(all) > 0 {
		a.Extra = all
	}
	return nil
}

func (a Analysis) MarshalJSON() ([]byte, error) {
	type plain Analysis
	known, err := json.Marshal(plain(a))
	if err != nil || len(a.Extra) == 0 {
		return known, err
	}
	merged := make(map[string]json.RawMessage, len(a.Extra)+len(analysisFields))
	for k, v := range a.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// AnalysisResponse is returned by the analyze and status endpoints.
type AnalysisResponse struct {
	ID           string    `json:"id"`
	Status       Status    `json:"status"`
	Analysis     *Analysis `json:"analysis,omitempty"`
	Error        string    `json:"error,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// UnmarshalJSON accepts the id as either a JSON string or a number.
func (r *AnalysisResponse) UnmarshalJSON(data []byte) error {
	type plain AnalysisResponse
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// decodeID reads an identifier the backend may send as a string or a
// number. A missing or null id decodes to "".
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("id must be a string or a number")
	}
	return n.String(), nil
}

// Message returns the server-supplied failure message.
func (r AnalysisResponse) Message() string {
	if r.Error != "" {
		return r.Error
	}
	return r.ErrorMessage
}

// Validate checks the status/payload invariant: completed carries an analysis,
// failed carries a message, processing carries neither.
func (r AnalysisResponse) Validate() error {
	switch r.Status {
	case StatusCompleted:
		if r.Analysis == nil {
			return &TransportError{Message: "malformed analysis response: completed without analysis"}
		}
	case StatusFailed:
		if r.Message() == "" {
			return &TransportError{Message: "malformed analysis response: failed without error message"}
		}
	case StatusProcessing:
		if r.Analysis != nil || r.Message() != "" {
			return &TransportError{Message: "malformed analysis response: processing with result"}
		}
	default:
		return &TransportError{Message: fmt.Sprintf("malformed analysis response: unknown status %q", r.Status)}
	}
	return nil
}

// UploadProgress is a transient progress sample for one upload.
type UploadProgress struct {
	Loaded     int64
	Total      int64
	Percentage int
}

// DashboardStats are the aggregate numbers shown on the dashboard.
type DashboardStats struct {
	TotalAnalyses      int     `json:"totalAnalyses"`
	AvgRiskScore       float64 `json:"avgRiskScore"`
	DocumentsThisMonth int     `json:"documentsThisMonth"`
	TimesSaved         string  `json:"timesSaved"`
}

// RecentAnalysis is one row of the dashboard's recent list.
type RecentAnalysis struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	RiskScore float64 `json:"riskScore"`
	Status    string  `json:"status"`
	Type      string  `json:"type"`
}

// DashboardResponse is returned by GET /dashboard.
type DashboardResponse struct {
	Stats          DashboardStats   `json:"stats"`
	RecentAnalyses []RecentAnalysis `json:"recentAnalyses"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Credentials are sent to POST /auth/signin.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is sent to POST /auth/signup.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role,omitempty"`
}

// User is the backend's view of the signed-in account.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// AuthResponse is returned by the signin, signup, google and refresh endpoints.
type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// BearerToken returns accessToken, falling back to the older token field.
func (r AuthResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}
