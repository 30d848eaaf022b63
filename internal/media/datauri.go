package media

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
)

// IsDataURI reports whether s looks like a base64 data URI.
func IsDataURI(s string) bool {
	if !strings.HasPrefix(s, "data:") {
		return false
	}
	comma := strings.IndexByte(s, ',')
	return comma > 0 && strings.HasSuffix(s[:comma], ";base64")
}

// Decode splits a data URI produced by Encode into its MIME type and bytes.
func Decode(payload string) (string, []byte, error) {
	if !IsDataURI(payload) {
		return "", nil, ErrNotDataURI
	}

	comma := strings.IndexByte(payload, ',')
	header := strings.TrimSuffix(payload[len("data:"):comma], ";base64")
	mimeType := stripParams(header)
	if mimeType == "" {
		mimeType = fallbackMIME
	}

	data, err := base64.StdEncoding.DecodeString(payload[comma+1:])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return mimeType, data, nil
}

// ExtensionFor returns a file extension (with dot) for mimeType, or ".bin".
func ExtensionFor(mimeType string) string {
	switch mimeType {
	case "video/mp4":
		return ".mp4"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "video/webm":
		return ".webm"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
