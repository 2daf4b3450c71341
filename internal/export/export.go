// Package export writes the artefacts of a pipeline run: CSV tables, PNG
// plots, HTML charts and a plain-text summary.
package export

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/lap-pace/internal/config"
	"github.com/banshee-data/lap-pace/internal/fsutil"
	"github.com/banshee-data/lap-pace/internal/monitoring"
	"github.com/banshee-data/lap-pace/internal/pipeline"
	"github.com/banshee-data/lap-pace/internal/security"
)

// Exporter writes run artefacts below a root directory.
type Exporter struct {
	fs     fsutil.FileSystem
	root   string
	roster config.Roster
}

// New returns an Exporter writing under root. A nil fsys writes to disk.
func New(fsys fsutil.FileSystem, root string, roster config.Roster) *Exporter {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Exporter{fs: fsys, root: root, roster: roster}
}

// RunDir is the directory the artefacts of res are written to.
func (e *Exporter) RunDir(res *pipeline.Result) string {
	return filepath.Join(e.root, res.RunID.String())
}

// Write produces every artefact of res and returns the written paths in
// the order they were written.
func (e *Exporter) Write(res *pipeline.Result) ([]string, error) {
	w := &runWriter{fs: e.fs, dir: e.RunDir(res)}
	if err := e.fs.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	steps := []struct {
		name string
		fn   func(*runWriter, *pipeline.Result) error
	}{
		{"tables", writeTables},
		{"plots", e.writePlots},
		{"charts", writeCharts},
		{"summary", writeSummary},
	}
	for _, s := range steps {
		if err := s.fn(w, res); err != nil {
			return w.written, fmt.Errorf("export %s: %w", s.name, err)
		}
	}
	monitoring.Logf("export: wrote %d files to %s", len(w.written), w.dir)
	return w.written, nil
}

// runWriter creates files in one run directory and remembers them.
type runWriter struct {
	fs      fsutil.FileSystem
	dir     string
	written []string
}

func (w *runWriter) create(name string, fill func(io.Writer) error) error {
	path, err := security.JoinFileName(w.dir, name)
	if err != nil {
		return err
	}
	f, err := w.fs.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	w.written = append(w.written, path)
	return nil
}
