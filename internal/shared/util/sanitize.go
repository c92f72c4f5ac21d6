package util

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

// ErrInvalidFileName is returned for empty names and traversal patterns.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName removes path separators and control characters and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.TrimSpace(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

// FileExtension returns the lower-case extension of name without the dot.
// When name has none, the first extension registered for contentType is used.
func FileExtension(name, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	// mime.ExtensionsByType depends on the host's mime tables; pin the common ones.
	case "application/pdf":
		return "pdf"
	case "application/msword":
		return "doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	case "text/plain":
		return "txt"
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(exts[0], "."))
}
