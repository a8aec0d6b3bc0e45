// Package source defines the product-source contract and a named-backend
// registry so the engine depends on the abstract lookup only, never on a
// concrete provider (remote catalog, local database, ...).
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/model"
)

// ErrNotFound is returned by a ProductSource when no product exists for the
// requested barcode. It is the only "expected" source failure.
var ErrNotFound = errors.New("product not found")

// ProductSource resolves a barcode to a normalized product record.
// Implementations must be safe for concurrent use.
type ProductSource interface {
	// Get fetches a product by EAN. Returns ErrNotFound (possibly wrapped)
	// when the source has no record for it.
	Get(ctx context.Context, ean string) (*model.ProductInfo, error)
}

// Options configure backend construction.
type Options struct {
	// BaseURL overrides the remote catalog endpoint (openfoodfacts backend).
	BaseURL string

	// DSN is the database location (sqlite backend).
	DSN string

	// TimeoutSeconds bounds remote calls; 0 means the backend default.
	TimeoutSeconds int
}

// Constructor builds a ProductSource from options and a logger.
type Constructor func(opts Options, logger logging.Logger) (ProductSource, error)

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register registers a named backend constructor. Name is lower-cased
// internally; re-registering a name overwrites the previous constructor.
func Register(name string, ctor Constructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// New constructs the named backend. The error for an unknown name lists the
// registered backends.
func New(name string, opts Options, logger logging.Logger) (ProductSource, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		backend = "openfoodfacts"
	}

	mu.RLock()
	ctor, ok := registry[backend]
	mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("product source backend %q not registered: available backends=%v", backend, List())
	}

	src, err := ctor(opts, logger)
	if err != nil {
		return nil, fmt.Errorf("construct product source backend %q: %w", backend, err)
	}
	if src == nil {
		return nil, errors.New("product source constructor returned nil")
	}
	return src, nil
}

// List returns the registered backend names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register("openfoodfacts", func(opts Options, logger logging.Logger) (ProductSource, error) {
		return NewOpenFoodFactsClient(opts, logger), nil
	})
	Register("sqlite", func(opts Options, logger logging.Logger) (ProductSource, error) {
		return NewSQLiteSource(opts.DSN, logger)
	})
}
