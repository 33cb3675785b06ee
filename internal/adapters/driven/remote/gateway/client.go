package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/logger"
)

// Service hosts.
const (
	ProductionHost = "https://www.evernote.com"
	SandboxHost    = "https://sandbox.evernote.com"
)

const (
	userStorePath    = "/edam/user"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "notesync"
)

// Verify interface compliance.
var _ driven.RemoteSyncClient = (*Client)(nil)

// Config configures the gateway client.
type Config struct {
	// BaseURL overrides the service host. Empty selects by Sandbox.
	BaseURL string

	// Sandbox selects the sandbox service when BaseURL is empty.
	Sandbox bool

	// Timeout bounds each request. Zero uses 30s.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string
}

// Host returns the service host the config points at.
func (c Config) Host() string {
	switch {
	case c.BaseURL != "":
		return strings.TrimRight(c.BaseURL, "/")
	case c.Sandbox:
		return SandboxHost
	default:
		return ProductionHost
	}
}

// Client talks to the EDAM JSON gateway.
// Each call is a POST of a JSON object to <store>/<operation>; successful
// responses carry the value under "result".
type Client struct {
	http *resty.Client

	mu           sync.Mutex
	noteStoreURL string
}

// NewClient creates a gateway client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = defaultUserAgent
	}

	client := resty.New().
		SetBaseURL(cfg.Host()).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", agent)

	return &Client{http: client}
}

// CheckVersion implements driven.RemoteSyncClient.
func (c *Client) CheckVersion(ctx context.Context, clientName string, major, minor int16) (bool, error) {
	body := map[string]any{
		"clientName":       clientName,
		"edamVersionMajor": major,
		"edamVersionMinor": minor,
	}
	return call[bool](ctx, c, userStorePath+"/checkVersion", "check_version", body)
}

// GetNoteStoreURL implements driven.RemoteSyncClient.
// The URL is looked up once per client; failures are not cached.
func (c *Client) GetNoteStoreURL(ctx context.Context, authToken string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.noteStoreURL != "" {
		return c.noteStoreURL, nil
	}

	url, err := call[string](ctx, c, userStorePath+"/getNoteStoreUrl", "get_note_store_url",
		map[string]any{"authenticationToken": authToken})
	if err != nil {
		return "", err
	}
	url = strings.TrimRight(url, "/")
	if url == "" {
		return "", domain.Unretryable(errors.New("get_note_store_url: empty note store url"))
	}

	logger.Debug("note store: %s", url)
	c.noteStoreURL = url
	return url, nil
}

// ListNotebooks implements driven.RemoteSyncClient.
func (c *Client) ListNotebooks(ctx context.Context, authToken string) ([]domain.Notebook, error) {
	path, err := c.noteStorePath(ctx, authToken, "listNotebooks")
	if err != nil {
		return nil, err
	}
	notebooks, err := call[[]domain.Notebook](ctx, c, path, "list_notebooks",
		map[string]any{"authenticationToken": authToken})
	if err != nil {
		return nil, err
	}
	if notebooks == nil {
		notebooks = []domain.Notebook{}
	}
	return notebooks, nil
}

// GetSyncState implements driven.RemoteSyncClient.
func (c *Client) GetSyncState(ctx context.Context, authToken string) (*domain.SyncState, error) {
	path, err := c.noteStorePath(ctx, authToken, "getSyncState")
	if err != nil {
		return nil, err
	}
	state, err := call[domain.SyncState](ctx, c, path, "get_sync_state",
		map[string]any{"authenticationToken": authToken})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetFilteredSyncChunk implements driven.RemoteSyncClient.
func (c *Client) GetFilteredSyncChunk(
	ctx context.Context,
	authToken string,
	afterUSN, maxEntries int32,
	filter domain.SyncChunkFilter,
) (*domain.SyncChunk, error) {
	path, err := c.noteStorePath(ctx, authToken, "getFilteredSyncChunk")
	if err != nil {
		return nil, err
	}
	chunk, err := call[domain.SyncChunk](ctx, c, path, "get_filtered_sync_chunk", map[string]any{
		"authenticationToken": authToken,
		"afterUSN":            afterUSN,
		"maxEntries":          maxEntries,
		"filter":              filter,
	})
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// GetNote implements driven.RemoteSyncClient.
func (c *Client) GetNote(ctx context.Context, authToken, guid string, opts domain.NoteOptions) (*domain.Note, error) {
	path, err := c.noteStorePath(ctx, authToken, "getNote")
	if err != nil {
		return nil, err
	}
	note, err := call[domain.Note](ctx, c, path, "get_note", map[string]any{
		"authenticationToken":        authToken,
		"guid":                       guid,
		"withContent":                opts.WithContent,
		"withResourcesData":          opts.WithResourcesData,
		"withResourcesRecognition":   opts.WithResourcesRecognition,
		"withResourcesAlternateData": opts.WithResourcesAlternateData,
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) noteStorePath(ctx context.Context, authToken, op string) (string, error) {
	base, err := c.GetNoteStoreURL(ctx, authToken)
	if err != nil {
		return "", err
	}
	return base + "/" + op, nil
}

// envelope is the success body of every call.
type envelope[T any] struct {
	Result T `json:"result"`
}

// call posts body to path and decodes the "result" field.
func call[T any](ctx context.Context, c *Client, path, op string, body any) (T, error) {
	var zero T

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, fmt.Errorf("%s: %w", op, domain.Transient(err))
	}

	if err := mapHTTPError(op, resp); err != nil {
		logger.Debug("%s: %s", op, statusText(resp))
		return zero, err
	}

	var out envelope[T]
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return zero, fmt.Errorf("%s: decode response: %w", op, domain.Unretryable(err))
	}
	return out.Result, nil
}

// statusText is used in debug output.
func statusText(resp *resty.Response) string {
	return fmt.Sprintf("%d %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
}
