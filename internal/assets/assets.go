// Package assets resolves asset paths against GRF archives and directories
// and caches the bytes it reads.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-paint/internal/logger"
	"github.com/Faultbox/midgard-paint/pkg/formats"
	"github.com/Faultbox/midgard-paint/pkg/grf"
)

// DefaultCacheEntries is the cache size used when none is configured.
const DefaultCacheEntries = 256

// ErrNotFound is returned when no source holds the requested asset.
var ErrNotFound = errors.New("asset not found")

type source struct {
	name string
	fsys fs.FS
	// folded sources are looked up with normalized (lower-case) keys.
	folded bool
}

// Manager loads assets from archives and directories. Sources are searched
// in reverse order (last added = highest priority); plain OS paths are
// tried last. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sources  []source
	archives []*grf.Archive
	cache    *lru.Cache

	statsMu sync.Mutex
	hits    int
	misses  int
}

// NewManager creates a manager caching up to entries files.
func NewManager(entries int) (*Manager, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	cache, err := lru.New(entries)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Manager{cache: cache}, nil
}

// AddArchive opens a GRF archive and adds it as a source.
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.sources = append(m.sources, source{name: path, fsys: archive.FS(), folded: true})
	m.mu.Unlock()

	logger.Info("archive added", zap.String("path", path), zap.Int("files", len(archive.List())))
	return nil
}

// AddDir adds a directory as a source.
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding directory: %s is not a directory", dir)
	}
	m.AddFS(dir, os.DirFS(dir))
	return nil
}

// AddFS adds an arbitrary file system as a source.
func (m *Manager) AddFS(name string, fsys fs.FS) {
	m.mu.Lock()
	m.sources = append(m.sources, source{name: name, fsys: fsys})
	m.mu.Unlock()
}

// Archives returns the opened GRF archives in the order they were added.
func (m *Manager) Archives() []*grf.Archive {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*grf.Archive(nil), m.archives...)
}

// Load returns the contents of name. Cache entries keep the case of name,
// since directory sources are case-sensitive.
func (m *Manager) Load(name string) ([]byte, error) {
	slashed := strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./")
	if v, ok := m.cache.Get(slashed); ok {
		m.count(true)
		return v.([]byte), nil
	}
	m.count(false)

	data, err := m.lookup(name, slashed)
	if err != nil {
		return nil, err
	}
	m.cache.Add(slashed, data)
	return data, nil
}

func (m *Manager) lookup(name, slashed string) ([]byte, error) {
	key := formats.NormalizePath(name)

	m.mu.RLock()
	sources := m.sources
	m.mu.RUnlock()

	for i := len(sources) - 1; i >= 0; i-- {
		s := sources[i]
		p := slashed
		if s.folded {
			p = key
		}
		if !fs.ValidPath(p) {
			continue
		}
		data, err := fs.ReadFile(s.fsys, p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("asset source failed", zap.String("source", s.name), zap.String("path", p), zap.Error(err))
		}
	}

	data, err := os.ReadFile(name)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (m *Manager) count(hit bool) {
	m.statsMu.Lock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
	m.statsMu.Unlock()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.hits, m.misses
}

// Close closes all archives and empties the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, archive := range m.archives {
		archive.Close()
	}
	m.archives = nil
	m.sources = nil
	m.cache.Purge()
}
