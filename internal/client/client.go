// Package client is the Go API client for the gallery server. The TUI talks
// to the server exclusively through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/hashicorp/go-retryablehttp"

	"imagegallery/internal/config"
	ferrors "imagegallery/internal/errors"
	"imagegallery/internal/gallery"
	"imagegallery/internal/logging"
	"imagegallery/internal/scanner"
)

type Client struct {
	base string
	http *http.Client
	log  *logging.Logger
}

func New(cfg *config.Config, log *logging.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = cfg.Network.MaxRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	if cfg.Network.TimeoutSeconds > 0 {
		rc.HTTPClient.Timeout = time.Duration(cfg.Network.TimeoutSeconds) * time.Second
	}
	return &Client{
		base: cfg.BaseURL(),
		http: rc.StandardClient(),
		log:  log.WithScope("client"),
	}
}

// Page is one slice of the image listing.
type Page struct {
	Images     []gallery.ItemRecord `json:"images"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"total_pages"`
	PerPage    int                  `json:"per_page"`
	Total      int                  `json:"total"`
}

// PageOptions selects what FetchPage asks for. Zero values mean server
// defaults.
type PageOptions struct {
	Page           int
	PerPage        int
	Search         string
	Sort           string
	MetadataFilter string
	Source         string
}

// FetchPage retrieves one listing page.
func (c *Client) FetchPage(ctx context.Context, opts PageOptions) (Page, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.MetadataFilter != "" {
		q.Set("metadata_filter", opts.MetadataFilter)
	}
	if opts.Source != "" {
		q.Set("source", opts.Source)
	}
	var out Page
	if err := c.getJSON(ctx, "/gallery/images?"+q.Encode(), &out); err != nil {
		return Page{}, err
	}
	return out, nil
}

// PersistUIState implements gallery.PersistSink over the wire.
func (c *Client) PersistUIState(ctx context.Context, panelID, instanceID string, state map[string]any) error {
	return c.postJSON(ctx, "/gallery/ui_state", map[string]any{
		"panel":    panelID,
		"instance": instanceID,
		"state":    state,
	}, nil)
}

// LoadUIState retrieves previously persisted panel state.
func (c *Client) LoadUIState(ctx context.Context, panelID, instanceID string) (map[string]any, error) {
	var out struct {
		State map[string]any `json:"state"`
	}
	if err := c.getJSON(ctx, "/gallery/ui_state?panel="+url.QueryEscape(panelID)+"&instance="+url.QueryEscape(instanceID), &out); err != nil {
		return nil, err
	}
	if out.State == nil {
		out.State = map[string]any{}
	}
	return out.State, nil
}

// Folder mirrors a registry entry returned by the server.
type Folder struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// Folders lists the registered source folders, default first.
func (c *Client) Folders(ctx context.Context) ([]Folder, error) {
	var out struct {
		Folders []Folder `json:"folders"`
	}
	if err := c.getJSON(ctx, "/gallery/folders", &out); err != nil {
		return nil, err
	}
	return out.Folders, nil
}

func (c *Client) AddFolder(ctx context.Context, path, name string) error {
	return c.postJSON(ctx, "/gallery/folders/add", map[string]string{"path": path, "name": name}, nil)
}

func (c *Client) RemoveFolder(ctx context.Context, path string) error {
	return c.postJSON(ctx, "/gallery/folders/remove", map[string]string{"path": path}, nil)
}

// UploadResult reports what the server kept and skipped.
type UploadResult struct {
	Saved   []string `json:"saved"`
	Skipped []string `json:"skipped"`
}

// Upload sends local files to the default folder. Non-image paths are
// rejected client-side before any bytes move.
func (c *Client) Upload(ctx context.Context, paths []string) (UploadResult, error) {
	if len(paths) == 0 {
		return UploadResult{}, fmt.Errorf("no files to upload")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range paths {
		name := filepath.Base(p)
		if !scanner.IsImage(name) {
			return UploadResult{}, ferrors.NotAnImageError(name)
		}
		f, err := os.Open(p)
		if err != nil {
			return UploadResult{}, err
		}
		fw, err := mw.CreateFormFile("images", name)
		if err == nil {
			_, err = io.Copy(fw, f)
		}
		_ = f.Close()
		if err != nil {
			return UploadResult{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/gallery/upload", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return UploadResult{}, ferrors.NetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out UploadResult
	if err := decodeResponse(resp, &out); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

// Paste asks the server to import a local file path, as produced by a
// clipboard copy of an image file.
func (c *Client) Paste(ctx context.Context, path string) (UploadResult, error) {
	var out UploadResult
	if err := c.postJSON(ctx, "/gallery/paste", map[string]string{"path": path}, &out); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

// PasteFromClipboard reads the clipboard, interprets its text as a file
// path, and imports it.
func (c *Client) PasteFromClipboard(ctx context.Context) (UploadResult, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return UploadResult{}, ferrors.ClipboardError(err)
	}
	path := strings.TrimSpace(strings.TrimPrefix(text, "file://"))
	if path == "" {
		return UploadResult{}, ferrors.ClipboardError(fmt.Errorf("clipboard is empty"))
	}
	return c.Paste(ctx, path)
}

// Delete removes an image from its source folder.
func (c *Client) Delete(ctx context.Context, canonicalName, source string) error {
	return c.postJSON(ctx, "/gallery/delete", map[string]string{"name": canonicalName, "source": source}, nil)
}

// InvalidateCache drops the server's listing cache.
func (c *Client) InvalidateCache(ctx context.Context) error {
	return c.postJSON(ctx, "/gallery/invalidate", map[string]any{}, nil)
}

// ThumbURL returns the absolute thumbnail URL for an item.
func (c *Client) ThumbURL(it gallery.ItemRecord) string {
	if it.PreviewRef != "" {
		return c.base + it.PreviewRef
	}
	return c.base + "/gallery/thumb?name=" + url.QueryEscape(it.CanonicalName) + "&source=" + url.QueryEscape(it.SourceID)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ferrors.NetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return ferrors.NetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server: status %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
