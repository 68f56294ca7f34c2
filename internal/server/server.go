// Package server exposes the gallery REST API: paged image listings,
// thumbnails, uploads, deletion, the folder registry, and UI state
// persistence.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"imagegallery/internal/cache"
	"imagegallery/internal/config"
	ferrors "imagegallery/internal/errors"
	"imagegallery/internal/gallery"
	"imagegallery/internal/logging"
	"imagegallery/internal/meta"
	"imagegallery/internal/metrics"
	"imagegallery/internal/scanner"
	"imagegallery/internal/state"
	"imagegallery/internal/thumbs"
	"imagegallery/internal/util"
)

type Server struct {
	cfg     *config.Config
	log     *logging.Logger
	db      *state.DB
	cache   *cache.ListingCache
	thumbs  *thumbs.Generator
	metrics *metrics.Manager

	// hasMeta is swappable in tests.
	hasMeta func(path string) bool
}

func New(cfg *config.Config, log *logging.Logger, db *state.DB, c *cache.ListingCache, gen *thumbs.Generator, m *metrics.Manager) *Server {
	return &Server{
		cfg:     cfg,
		log:     log.WithScope("server"),
		db:      db,
		cache:   c,
		thumbs:  gen,
		metrics: m,
		hasMeta: meta.HasGeneratorMetadata,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gallery/images", s.handleImages)
	mux.HandleFunc("GET /gallery/thumb", s.handleThumb)
	mux.HandleFunc("GET /gallery/preview", s.handlePreview)
	mux.HandleFunc("POST /gallery/upload", s.handleUpload)
	mux.HandleFunc("POST /gallery/paste", s.handlePaste)
	mux.HandleFunc("POST /gallery/delete", s.handleDelete)
	mux.HandleFunc("GET /gallery/folders", s.handleFolders)
	mux.HandleFunc("POST /gallery/folders/add", s.handleFolderAdd)
	mux.HandleFunc("POST /gallery/folders/remove", s.handleFolderRemove)
	mux.HandleFunc("POST /gallery/invalidate", s.handleInvalidate)
	mux.HandleFunc("GET /gallery/ui_state", s.handleUIStateGet)
	mux.HandleFunc("POST /gallery/ui_state", s.handleUIStateSet)
	return mux
}

// Run serves the API until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Infof("listening on %s", s.cfg.Server.Listen)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ImagesResponse is the paged listing returned by GET /gallery/images.
type ImagesResponse struct {
	Images     []gallery.ItemRecord `json:"images"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"total_pages"`
	PerPage    int                  `json:"per_page"`
	Total      int                  `json:"total"`
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	started := time.Now()

	folders, merged, err := s.resolveSource(q.Get("source"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var items []gallery.ItemRecord
	for _, f := range folders {
		listing, err := s.cache.Listing(f.Path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		for _, e := range listing.Images {
			display := util.DisplayName(e.RelPath)
			if merged {
				display = "[" + f.Name + "] " + display
			}
			items = append(items, gallery.ItemRecord{
				DisplayName:   display,
				CanonicalName: e.RelPath,
				SourceID:      f.Name,
				PreviewRef:    "/gallery/thumb?name=" + urlEscape(e.RelPath) + "&source=" + urlEscape(f.Name),
				ModTime:       e.ModTime,
				Size:          e.Size,
			})
		}
	}

	if search := strings.TrimSpace(q.Get("search")); search != "" {
		needle := strings.ToLower(search)
		kept := items[:0]
		for _, it := range items {
			if strings.Contains(strings.ToLower(it.DisplayName), needle) {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	if mf := q.Get("metadata_filter"); mf == gallery.MetaWith || mf == gallery.MetaWithout {
		byName := folderIndex(folders)
		kept := items[:0]
		for _, it := range items {
			if s.itemHasMetadata(byName, it) == (mf == gallery.MetaWith) {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	switch q.Get("sort") {
	case gallery.SortDate:
		sort.SliceStable(items, func(i, j int) bool { return items[i].ModTime > items[j].ModTime })
	case gallery.SortDateAsc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].ModTime < items[j].ModTime })
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].DisplayName) < strings.ToLower(items[j].DisplayName)
		})
	}

	perPage := s.cfg.PerPage()
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		perPage = v
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	lo := (page - 1) * perPage
	hi := lo + perPage
	if hi > total {
		hi = total
	}

	s.metrics.IncPagesServed()
	s.metrics.ObserveScanSeconds(time.Since(started).Seconds())
	s.writeMetrics()
	writeJSON(w, http.StatusOK, ImagesResponse{
		Images:     items[lo:hi],
		Page:       page,
		TotalPages: totalPages,
		PerPage:    perPage,
		Total:      total,
	})
}

func (s *Server) handleThumb(w http.ResponseWriter, r *http.Request) {
	path, err := s.resolveImage(r.URL.Query().Get("source"), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("image not found"))
		return
	}
	thumbPath, generated, err := s.thumbs.Thumbnail(path, info.ModTime().Unix())
	if err != nil {
		s.log.Warnf("thumbnail %s: %v", path, err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if generated {
		s.metrics.IncThumbnailsGenerated()
		s.writeMetrics()
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, thumbPath)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path, err := s.resolveImage(r.URL.Query().Get("source"), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("image not found"))
		return
	}
	http.ServeFile(w, r, path)
}

// UploadResponse reports the outcome of an upload or paste.
type UploadResponse struct {
	Saved   []string `json:"saved"`
	Skipped []string `json:"skipped,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no files in field 'images'"))
		return
	}
	var resp UploadResponse
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !scanner.IsImage(name) {
			s.log.Infof("upload skipped %s: not an image", name)
			resp.Skipped = append(resp.Skipped, name)
			continue
		}
		src, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		saved, err := s.saveToInput(name, src)
		_ = src.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Saved = append(resp.Saved, saved)
	}
	if len(resp.Saved) > 0 {
		s.cache.Invalidate()
		s.metrics.IncUploads(int64(len(resp.Saved)))
		s.writeMetrics()
	}
	writeJSON(w, http.StatusOK, resp)
}

type pasteRequest struct {
	Path string `json:"path"`
}

func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	var req pasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must be {\"path\": ...}"))
		return
	}
	name := filepath.Base(req.Path)
	if !scanner.IsImage(name) {
		writeError(w, http.StatusBadRequest, ferrors.NotAnImageError(name))
		return
	}
	src, err := os.Open(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer func() { _ = src.Close() }()
	saved, err := s.saveToInput(name, src)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.cache.Invalidate()
	s.metrics.IncUploads(1)
	s.writeMetrics()
	writeJSON(w, http.StatusOK, UploadResponse{Saved: []string{saved}})
}

type deleteRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must be {\"name\": ..., \"source\": ...}"))
		return
	}
	path, err := s.resolveImage(req.Source, req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("image not found"))
		return
	}
	if err := os.Remove(path); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.thumbs.Remove(path, info.ModTime().Unix())
	s.cache.Invalidate()
	s.metrics.IncDeletes()
	s.writeMetrics()
	writeJSON(w, http.StatusOK, map[string]any{"deleted": req.Name})
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.db.Folders()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

type folderRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

func (s *Server) handleFolderAdd(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must be {\"path\": ..., \"name\": ...}"))
		return
	}
	if err := s.db.AddFolder(req.Path, req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.handleFolders(w, r)
}

func (s *Server) handleFolderRemove(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must be {\"path\": ...}"))
		return
	}
	if err := s.db.RemoveFolder(req.Path); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.handleFolders(w, r)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.cache.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUIStateGet(w http.ResponseWriter, r *http.Request) {
	panel := r.URL.Query().Get("panel")
	instance := r.URL.Query().Get("instance")
	if panel == "" || instance == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("panel and instance are required"))
		return
	}
	st, err := s.db.LoadUIState(panel, instance)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": st})
}

type uiStateRequest struct {
	Panel    string         `json:"panel"`
	Instance string         `json:"instance"`
	State    map[string]any `json:"state"`
}

func (s *Server) handleUIStateSet(w http.ResponseWriter, r *http.Request) {
	var req uiStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Panel == "" || req.Instance == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must be {\"panel\": ..., \"instance\": ..., \"state\": {...}}"))
		return
	}
	if err := s.db.SaveUIState(req.Panel, req.Instance, req.State); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// resolveSource maps a source parameter to the folders to list. Empty means
// the default folder; SourceAll merges every registered folder and prefixes
// display names with the folder label.
func (s *Server) resolveSource(source string) ([]state.Folder, bool, error) {
	folders, err := s.db.Folders()
	if err != nil {
		return nil, false, err
	}
	if len(folders) == 0 {
		return nil, false, fmt.Errorf("no source folders registered")
	}
	switch source {
	case gallery.SourceAll:
		return folders, true, nil
	case "":
		return folders[:1], false, nil
	}
	for _, f := range folders {
		if f.Name == source {
			return []state.Folder{f}, false, nil
		}
	}
	return nil, false, fmt.Errorf("unknown source: %s", source)
}

// resolveImage maps (source, canonical name) to an absolute path inside the
// folder, rejecting traversal.
func (s *Server) resolveImage(source, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	folders, _, err := s.resolveSource(source)
	if err != nil {
		return "", err
	}
	return util.SafeJoin(folders[0].Path, name)
}

func (s *Server) itemHasMetadata(byName map[string]state.Folder, it gallery.ItemRecord) bool {
	f, ok := byName[it.SourceID]
	if !ok {
		return false
	}
	path, err := util.SafeJoin(f.Path, it.CanonicalName)
	if err != nil {
		return false
	}
	if has, ok := s.cache.MetadataStatus(path, it.ModTime); ok {
		return has
	}
	has := s.hasMeta(path)
	s.cache.SetMetadataStatus(path, it.ModTime, has)
	return has
}

// saveToInput streams an upload into the default folder. A name collision
// with identical content reuses the existing file; differing content gets a
// uniquified name.
func (s *Server) saveToInput(name string, src io.Reader) (string, error) {
	dest, err := util.SafeJoin(s.cfg.General.InputRoot, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload.tmp.*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if _, err := os.Stat(dest); err == nil {
		incoming, err1 := util.HashFileSHA256(tmp.Name())
		existing, err2 := util.HashFileSHA256(dest)
		if err1 == nil && err2 == nil && incoming == existing {
			return s.inputRel(dest), nil
		}
		dest = uniquePath(dest)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return s.inputRel(dest), nil
}

func (s *Server) inputRel(dest string) string {
	rel, err := filepath.Rel(s.cfg.General.InputRoot, dest)
	if err != nil {
		return filepath.Base(dest)
	}
	return rel
}

// uniquePath appends _1, _2, ... before the extension until the path is free.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func folderIndex(folders []state.Folder) map[string]state.Folder {
	out := make(map[string]state.Folder, len(folders))
	for _, f := range folders {
		out[f.Name] = f
	}
	return out
}

func (s *Server) writeMetrics() {
	if err := s.metrics.Write(); err != nil {
		s.log.Warnf("metrics write: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func urlEscape(s string) string { return url.QueryEscape(s) }
