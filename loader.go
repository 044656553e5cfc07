package nodata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// ErrMissingFile is returned when a file is absent or shorter than
// required.
var ErrMissingFile = errors.New("missing file")

var (
	fileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodata_file_cache_hits_total",
		Help: "The total number of hits on the file cache",
	})
	fileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodata_file_cache_misses_total",
		Help: "The total number of misses on the file cache",
	})
)

type fileKey struct {
	name      string
	byteCount int
}

// A Loader reads fixed-size binary files from a file system. Raw file
// contents are cached, but every caller receives its own copy.
type Loader struct {
	mutex     sync.Mutex
	fsys      fs.FS
	logger    *zap.Logger
	cacheSize int
	cache     *lru.Cache[fileKey, []byte]
}

// A LoaderOption sets an option on a Loader.
type LoaderOption func(*Loader)

// NewLoader returns a new Loader reading from fsys.
func NewLoader(fsys fs.FS, options ...LoaderOption) (*Loader, error) {
	l := &Loader{
		fsys:      fsys,
		logger:    newDefaultLogger(),
		cacheSize: 8,
	}
	for _, option := range options {
		option(l)
	}

	var err error
	l.cache, err = lru.New[fileKey, []byte](l.cacheSize)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func WithLoaderCacheSize(cacheSize int) LoaderOption {
	return func(l *Loader) {
		l.cacheSize = cacheSize
	}
}

func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// Load returns the first byteCount bytes of the file name. It returns an
// error wrapping ErrMissingFile if the file does not exist or is shorter
// than byteCount. The returned buffer is owned by the caller.
func (l *Loader) Load(name string, byteCount int) ([]byte, error) {
	buf, err := l.loadCached(name, byteCount)
	if err != nil {
		l.logger.Warn("cannot load file",
			zap.String("name", name),
			zap.Int("byteCount", byteCount),
			zap.Error(err),
		)
		return nil, err
	}
	return slices.Clone(buf), nil
}

// Digest returns the xxhash digest of the first byteCount bytes of the file
// name.
func (l *Loader) Digest(name string, byteCount int) (uint64, error) {
	buf, err := l.loadCached(name, byteCount)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(buf), nil
}

// LoadRaster loads a raster stored in byteOrder.
func (l *Loader) LoadRaster(name string, config Config, byteOrder binary.ByteOrder) (*Raster, error) {
	buf, err := l.Load(name, config.rasterBytes())
	if err != nil {
		return nil, err
	}
	toNativeByteOrder(buf, 4, byteOrder)
	return &Raster{
		Width:   config.Width,
		Height:  config.Height,
		Samples: decodeFloat32s(buf),
	}, nil
}

// LoadCoordinates loads the interleaved (x, y) coordinates.
func (l *Loader) LoadCoordinates(name string, config Config) ([]float64, error) {
	buf, err := l.Load(name, config.coordinatesBytes())
	if err != nil {
		return nil, err
	}
	toNativeByteOrder(buf, 8, fileByteOrder)
	return decodeFloat64s(buf), nil
}

// LoadExpectedResults loads the expected results of all verified
// iterations.
func (l *Loader) LoadExpectedResults(name string, config Config) ([]float64, error) {
	buf, err := l.Load(name, config.expectedResultsBytes())
	if err != nil {
		return nil, err
	}
	toNativeByteOrder(buf, 8, fileByteOrder)
	return decodeFloat64s(buf), nil
}

// loadCached returns the cached contents of name, reading it if needed. The
// returned slice must not be modified.
func (l *Loader) loadCached(name string, byteCount int) ([]byte, error) {
	key := fileKey{name: name, byteCount: byteCount}
	if buf, ok := l.cache.Get(key); ok {
		fileCacheHits.Inc()
		return buf, nil
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if buf, ok := l.cache.Get(key); ok {
		fileCacheHits.Inc()
		return buf, nil
	}

	fileCacheMisses.Inc()

	buf, err := l.read(name, byteCount)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, buf)
	return buf, nil
}

// read reads exactly byteCount bytes from the start of name.
func (l *Loader) read(name string, byteCount int) ([]byte, error) {
	file, err := l.fsys.Open(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: %w", name, ErrMissingFile)
	case err != nil:
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, byteCount)
	switch _, err := io.ReadFull(file, buf); {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%s: short read: %w", name, ErrMissingFile)
	case err != nil:
		return nil, err
	default:
		return buf, nil
	}
}
