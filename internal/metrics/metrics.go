package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"imagegallery/internal/config"
)

type Manager struct {
	path string
	mu   sync.Mutex
	// counters
	pagesServed     int64
	thumbsGenerated int64
	uploadsTotal    int64
	deletesTotal    int64
	lastScanSec     float64
}

func New(cfg *config.Config) *Manager {
	if cfg == nil || !cfg.Metrics.PrometheusTextfile.Enabled || cfg.Metrics.PrometheusTextfile.Path == "" {
		return nil
	}
	p := cfg.Metrics.PrometheusTextfile.Path
	_ = os.MkdirAll(filepath.Dir(p), 0o755)
	return &Manager{path: p}
}

func (m *Manager) IncPagesServed() {
	if m == nil { return }
	m.mu.Lock(); m.pagesServed++; m.mu.Unlock()
}

func (m *Manager) IncThumbnailsGenerated() {
	if m == nil { return }
	m.mu.Lock(); m.thumbsGenerated++; m.mu.Unlock()
}

func (m *Manager) IncUploads(n int64) {
	if m == nil { return }
	m.mu.Lock(); m.uploadsTotal += n; m.mu.Unlock()
}

func (m *Manager) IncDeletes() {
	if m == nil { return }
	m.mu.Lock(); m.deletesTotal++; m.mu.Unlock()
}

func (m *Manager) ObserveScanSeconds(sec float64) {
	if m == nil { return }
	m.mu.Lock(); m.lastScanSec = sec; m.mu.Unlock()
}

func (m *Manager) Write() error {
	if m == nil { return nil }
	m.mu.Lock(); defer m.mu.Unlock()
	f, err := os.CreateTemp(filepath.Dir(m.path), ".metrics.tmp.*")
	if err != nil { return err }
	defer os.Remove(f.Name())
	// Prometheus textfile format
	fmt.Fprintf(f, "# HELP imagegallery_pages_served_total Total image list pages served.\n")
	fmt.Fprintf(f, "# TYPE imagegallery_pages_served_total counter\n")
	fmt.Fprintf(f, "imagegallery_pages_served_total %d\n", m.pagesServed)

	fmt.Fprintf(f, "# HELP imagegallery_thumbnails_generated_total Total thumbnails generated.\n")
	fmt.Fprintf(f, "# TYPE imagegallery_thumbnails_generated_total counter\n")
	fmt.Fprintf(f, "imagegallery_thumbnails_generated_total %d\n", m.thumbsGenerated)

	fmt.Fprintf(f, "# HELP imagegallery_uploads_total Total images uploaded or pasted.\n")
	fmt.Fprintf(f, "# TYPE imagegallery_uploads_total counter\n")
	fmt.Fprintf(f, "imagegallery_uploads_total %d\n", m.uploadsTotal)

	fmt.Fprintf(f, "# HELP imagegallery_deletes_total Total images deleted.\n")
	fmt.Fprintf(f, "# TYPE imagegallery_deletes_total counter\n")
	fmt.Fprintf(f, "imagegallery_deletes_total %d\n", m.deletesTotal)

	fmt.Fprintf(f, "# HELP imagegallery_last_scan_seconds Duration of the last folder scan in seconds.\n")
	fmt.Fprintf(f, "# TYPE imagegallery_last_scan_seconds gauge\n")
	fmt.Fprintf(f, "imagegallery_last_scan_seconds %.6f\n", m.lastScanSec)

	fmt.Fprintf(f, "# HELP imagegallery_metrics_timestamp_seconds UNIX timestamp when this file was written.\n")
	fmt.Fprintf(f, "# TYPE imagegallery_metrics_timestamp_seconds gauge\n")
	fmt.Fprintf(f, "imagegallery_metrics_timestamp_seconds %d\n", time.Now().Unix())

	if err := f.Close(); err != nil { return err }
	return os.Rename(f.Name(), m.path)
}
