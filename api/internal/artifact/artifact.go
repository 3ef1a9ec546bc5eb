// Package artifact manages the short-lived audio files a single request needs:
// uploads waiting for transcription and synthesized clips waiting to be sent.
package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const namePrefix = "agri-"

// Gauge is the subset of a prometheus gauge the manager reports to.
type Gauge interface {
	Inc()
	Dec()
}

type Manager struct {
	dir  string
	live Gauge
}

func New(dir string, live Gauge) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "agri-relay")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create artifact dir %s", dir)
	}
	return &Manager{dir: dir, live: live}, nil
}

func (m *Manager) Dir() string { return m.dir }

func (m *Manager) create(suffix string) (*os.File, error) {
	name := filepath.Join(m.dir, namePrefix+uuid.NewString()+suffix)
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "create artifact")
	}
	if m.live != nil {
		m.live.Inc()
	}
	return f, nil
}

func (m *Manager) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("artifact cleanup failed")
		return
	}
	if m.live != nil {
		m.live.Dec()
	}
}

// WithTempFile creates an empty file ending in suffix, hands its path to
// producer and removes the file once producer returns or panics. A failed
// removal is logged; the producer's error is what gets returned.
func (m *Manager) WithTempFile(suffix string, producer func(path string) error) error {
	f, err := m.create(suffix)
	if err != nil {
		return err
	}
	path := f.Name()
	defer m.remove(path)
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close artifact")
	}
	return producer(path)
}

// Store writes data to a new file that outlives the call. The caller owns the
// returned Artifact and must Release it after the content has been sent.
func (m *Manager) Store(suffix, mime string, data []byte) (*Artifact, error) {
	f, err := m.create(suffix)
	if err != nil {
		return nil, err
	}
	a := &Artifact{Path: f.Name(), MIMEType: mime, Size: int64(len(data)), m: m}
	if _, err := f.Write(data); err != nil {
		f.Close()
		a.Release()
		return nil, errors.Wrap(err, "write artifact")
	}
	if err := f.Close(); err != nil {
		a.Release()
		return nil, errors.Wrap(err, "close artifact")
	}
	return a, nil
}

// Sweep removes artifacts older than maxAge left behind by a previous process.
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, errors.Wrap(err, "read artifact dir")
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), namePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Artifact is a file produced for a response body.
type Artifact struct {
	Path     string
	MIMEType string
	Size     int64

	m    *Manager
	once sync.Once
}

func (a *Artifact) Open() (*os.File, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open artifact")
	}
	return f, nil
}

// Release deletes the file. Safe to call more than once.
func (a *Artifact) Release() {
	if a == nil {
		return
	}
	a.once.Do(func() { a.m.remove(a.Path) })
}

func (a *Artifact) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", filepath.Base(a.Path), a.MIMEType, a.Size)
}
