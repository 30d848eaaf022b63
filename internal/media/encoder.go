package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	fallbackMIME = "application/octet-stream"
	readChunk    = 256 * 1024
)

// knownExtensions covers media types the platform MIME tables may lack.
var knownExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// File is a user-selected file handle. Open may be called more than once.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// BytesFile is an in-memory File.
type BytesFile struct {
	FileName string
	Data     []byte
}

// Name returns the configured file name.
func (b BytesFile) Name() string { return b.FileName }

// Open returns a reader over the in-memory bytes.
func (b BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// Encoder turns files into self-describing data URI payloads.
type Encoder struct {
	logger *slog.Logger
}

// NewEncoder constructs an Encoder. A nil logger falls back to slog.Default().
func NewEncoder(logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{logger: logger}
}

// Encode reads f completely and returns "data:<mime>;base64,<bytes>".
// Any failure to open or read the file is reported as a *ReadError.
func (e *Encoder) Encode(ctx context.Context, f File) (string, error) {
	if f == nil {
		return "", &ReadError{Err: ErrNoFile}
	}

	name := f.Name()
	rc, err := f.Open()
	if err != nil {
		return "", &ReadError{Name: name, Err: err}
	}
	defer rc.Close()

	data, err := readAll(ctx, rc)
	if err != nil {
		return "", &ReadError{Name: name, Err: err}
	}

	mimeType := DetectMIME(name, data)
	if e != nil && e.logger != nil {
		e.logger.Debug("media encoded", "file", name, "mime", mimeType, "bytes", len(data))
	}

	return EncodeBytes(mimeType, data), nil
}

// EncodeBytes builds a data URI for data with the given MIME type.
func EncodeBytes(mimeType string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// DetectMIME sniffs the content first and falls back to the file extension.
func DetectMIME(name string, data []byte) string {
	if len(data) > 0 {
		if detected := mimetype.Detect(data); detected != nil && !detected.Is(fallbackMIME) {
			return stripParams(detected.String())
		}
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if known, ok := knownExtensions[ext]; ok {
			return known
		}
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return stripParams(byExt)
		}
	}
	return fallbackMIME
}

// LimitedFile is a File on the local filesystem that refuses to open when it
// holds more than Max bytes. A Max of zero or less disables the check. The
// size is checked on Open, so the failure surfaces wherever the file is read.
type LimitedFile struct {
	Path string
	Max  int64
}

// Name returns the base name of the file.
func (f LimitedFile) Name() string { return filepath.Base(f.Path) }

// Open opens the file for reading, failing with ErrTooLarge past the limit.
func (f LimitedFile) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	if f.Max <= 0 {
		return file, nil
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() > f.Max {
		file.Close()
		return nil, fmt.Errorf("%d bytes: %w (limit %d)", info.Size(), ErrTooLarge, f.Max)
	}
	return file, nil
}

func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func stripParams(mimeType string) string {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		return strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}
