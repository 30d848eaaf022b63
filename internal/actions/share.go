package actions

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Sharer opens a platform share sheet for link.
type Sharer interface {
	Share(ctx context.Context, link string) error
}

// Clipboard stores text for the user to paste elsewhere.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// WriterClipboard is a Clipboard that prints to a writer, for terminals
// without clipboard access.
type WriterClipboard struct {
	mu sync.Mutex
	W  io.Writer
}

func (c *WriterClipboard) WriteText(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.W == nil {
		return errors.New("clipboard has no output")
	}
	_, err := io.WriteString(c.W, text+"\n")
	return err
}

// ShareLink builds the canonical link to a video: {base}/?video={id}.
func ShareLink(base string, videoID int64) string {
	query := url.Values{"video": []string{strconv.FormatInt(videoID, 10)}}
	return strings.TrimRight(base, "/") + "/?" + query.Encode()
}
