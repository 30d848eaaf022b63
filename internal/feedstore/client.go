package feedstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"github.com/vidfriends/vidfeed/internal/logging"
	"github.com/vidfriends/vidfeed/internal/models"
)

const defaultUserAgent = "vidfeed-client/1.0"

// Client talks to the feed store over its single-endpoint HTTP/JSON
// contract, where the operation is selected by the path query parameter.
type Client struct {
	client            *http.Client
	baseURL           string
	userAgent         string
	limiter           *rate.Limiter
	compressThreshold int
	logger            *slog.Logger

	// Last videos listing, replayed when the store answers 304.
	listMu   sync.Mutex
	listETag string
	listBody []byte
}

// defaultTransport keeps connections warm between the frequent full reloads.
func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

// NewClient creates a Client for the store endpoint at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: defaultTransport(),
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.client = hc
	}
	return c
}

// WithTimeout sets the per-request timeout. Zero disables it.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.client.Timeout = d
	return c
}

// WithRateLimit paces outgoing requests. A non-positive limit disables pacing.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		c.limiter = nil
		return c
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithCompressionThreshold gzips request bodies of at least n bytes.
// Zero disables compression.
func (c *Client) WithCompressionThreshold(n int) *Client {
	c.compressThreshold = n
	return c
}

// WithLogger sets the logger used when the request context carries none.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// ListVideos fetches the full feed with embedded comments and likes.
func (c *Client) ListVideos(ctx context.Context) ([]models.Video, error) {
	const op = "list videos"

	c.listMu.Lock()
	etag := c.listETag
	c.listMu.Unlock()

	header := http.Header{}
	if etag != "" {
		header.Set("If-None-Match", etag)
	}

	resp, err := c.do(ctx, op, http.MethodGet, PathVideos, nil, nil, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body []byte
	if resp.StatusCode == http.StatusNotModified {
		c.listMu.Lock()
		body = c.listBody
		c.listMu.Unlock()
		if body == nil {
			return nil, &TransportError{Op: op, Method: http.MethodGet, Status: resp.StatusCode, Err: ErrMalformedResponse}
		}
	} else {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransportError{Op: op, Method: http.MethodGet, Status: resp.StatusCode, Err: err}
		}
	}

	videos, err := decodeVideos(body)
	if err != nil {
		return nil, &TransportError{Op: op, Method: http.MethodGet, Status: resp.StatusCode, Err: err}
	}

	if tag := resp.Header.Get("ETag"); tag != "" && resp.StatusCode == http.StatusOK {
		c.listMu.Lock()
		c.listETag = tag
		c.listBody = body
		c.listMu.Unlock()
	}

	return videos, nil
}

// Like adds userID to the video's like membership.
func (c *Client) Like(ctx context.Context, videoID, userID int64) error {
	_, err := c.mutate(ctx, "like", http.MethodPost, PathLike, LikeRequest{VideoID: videoID, UserID: userID})
	return err
}

// Unlike removes userID from the video's like membership.
func (c *Client) Unlike(ctx context.Context, videoID, userID int64) error {
	_, err := c.mutate(ctx, "unlike", http.MethodDelete, PathLike, LikeRequest{VideoID: videoID, UserID: userID})
	return err
}

// AddComment appends a comment; the store assigns id and timestamp.
func (c *Client) AddComment(ctx context.Context, videoID, userID int64, text string) (models.Comment, error) {
	const op = "add comment"

	var out struct {
		models.Comment
		Error string `json:"error"`
	}
	if err := c.call(ctx, op, http.MethodPost, PathComment, CommentRequest{VideoID: videoID, UserID: userID, Text: text}, &out); err != nil {
		return models.Comment{}, err
	}
	if out.Error != "" {
		return models.Comment{}, &TransportError{Op: op, Method: http.MethodPost, Err: fmt.Errorf("%w: %s", ErrStoreRejected, out.Error)}
	}
	if out.ID == 0 {
		return models.Comment{}, &TransportError{Op: op, Method: http.MethodPost, Err: fmt.Errorf("%w: missing comment id", ErrMalformedResponse)}
	}
	return out.Comment, nil
}

// CreateVideo registers a new video.
func (c *Client) CreateVideo(ctx context.Context, video models.NewVideo) (models.Video, error) {
	const op = "create video"

	var out struct {
		models.Video
		Error string `json:"error"`
	}
	if err := c.call(ctx, op, http.MethodPost, PathVideo, video, &out); err != nil {
		return models.Video{}, err
	}
	if out.Error != "" {
		return models.Video{}, &TransportError{Op: op, Method: http.MethodPost, Err: fmt.Errorf("%w: %s", ErrStoreRejected, out.Error)}
	}
	if out.ID == 0 {
		return models.Video{}, &TransportError{Op: op, Method: http.MethodPost, Err: fmt.Errorf("%w: missing video id", ErrMalformedResponse)}
	}
	return out.Video, nil
}

// UpdateVideoThumbnail replaces the thumbnail of a video owned by userID.
func (c *Client) UpdateVideoThumbnail(ctx context.Context, videoID, userID int64, payload string) error {
	_, err := c.mutate(ctx, "update thumbnail", http.MethodPut, PathVideo, ThumbnailRequest{
		VideoID:      videoID,
		UserID:       userID,
		ThumbnailURL: payload,
	})
	return err
}

// UpdateUserAvatar replaces the user's avatar and returns the stored reference.
func (c *Client) UpdateUserAvatar(ctx context.Context, userID int64, payload string) (string, error) {
	result, err := c.mutate(ctx, "update avatar", http.MethodPut, PathUser, AvatarRequest{UserID: userID, AvatarURL: payload})
	if err != nil {
		return "", err
	}
	if result.AvatarURL != "" {
		return result.AvatarURL, nil
	}
	return payload, nil
}

// GetUser fetches a user record.
func (c *Client) GetUser(ctx context.Context, userID int64) (models.User, error) {
	const op = "get user"

	query := url.Values{"id": []string{strconv.FormatInt(userID, 10)}}
	resp, err := c.do(ctx, op, http.MethodGet, PathUser, query, nil, nil)
	if err != nil {
		return models.User{}, err
	}
	defer resp.Body.Close()

	var out struct {
		models.User
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.User{}, &TransportError{Op: op, Method: http.MethodGet, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if out.Error != "" {
		return models.User{}, &TransportError{Op: op, Method: http.MethodGet, Status: resp.StatusCode, Err: fmt.Errorf("%w: %s", ErrStoreRejected, out.Error)}
	}
	if out.ID == 0 {
		return models.User{}, &TransportError{Op: op, Method: http.MethodGet, Status: resp.StatusCode, Err: fmt.Errorf("%w: missing user id", ErrMalformedResponse)}
	}
	return out.User, nil
}

func (c *Client) mutate(ctx context.Context, op, method, path string, body any) (Result, error) {
	var result Result
	if err := c.call(ctx, op, method, path, body, &result); err != nil {
		return Result{}, err
	}
	if result.Error != "" || !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "success flag not set"
		}
		return Result{}, &TransportError{Op: op, Method: method, Err: fmt.Errorf("%w: %s", ErrStoreRejected, msg)}
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	resp, err := c.do(ctx, op, method, path, nil, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Method: method, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return nil
}

// do builds and executes one store request. Non-2xx responses other than
// 304 are converted to a *TransportError and their body is closed.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, header http.Header) (*http.Response, error) {
	start := time.Now()
	logger := c.logger
	if scoped, ok := logging.Lookup(ctx); ok {
		logger = scoped
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: op, Method: method, Err: err}
		}
	}

	reqURL, err := c.endpoint(path, query)
	if err != nil {
		return nil, &TransportError{Op: op, Method: method, Err: err}
	}

	var (
		reader   io.Reader
		encoding string
	)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Op: op, Method: method, Err: fmt.Errorf("encode request: %w", err)}
		}
		if c.compressThreshold > 0 && len(payload) >= c.compressThreshold {
			compressed, err := gzipBytes(payload)
			if err != nil {
				return nil, &TransportError{Op: op, Method: method, Err: err}
			}
			payload = compressed
			encoding = "gzip"
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Method: method, Err: fmt.Errorf("create request: %w", err)}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Method: method, Err: fmt.Errorf("do request: %w", err)}
	}

	logger.Debug("feed store round-trip",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotModified || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, nil
	}

	defer resp.Body.Close()
	msg := http.StatusText(resp.StatusCode)
	var envelope ErrorBody
	if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
	}
	return nil, &TransportError{Op: op, Method: method, Status: resp.StatusCode, Err: fmt.Errorf("%w: %s", ErrUnexpectedStatus, msg)}
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse store url: %w", err)
	}
	q := u.Query()
	q.Set("path", path)
	for key, values := range query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeVideos(body []byte) ([]models.Video, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope ErrorBody
		if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrStoreRejected, envelope.Error)
		}
	}

	var videos []models.Video
	if err := json.Unmarshal(trimmed, &videos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return videos, nil
}

func gzipBytes(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compress request: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress request: %w", err)
	}
	return buf.Bytes(), nil
}

// compile-time check
var _ Store = (*Client)(nil)

// IsTransport reports whether err came from the store transport.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
