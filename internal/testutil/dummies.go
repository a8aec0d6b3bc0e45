// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"

	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/source"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── ProductSource ─────────────────────────────────────────────────────

// StubSource implements source.ProductSource from an in-memory map. Unknown
// EANs return source.ErrNotFound; set Err to force a different failure.
type StubSource struct {
	Products map[string]*model.ProductInfo
	Err      error

	mu    sync.Mutex
	Calls []string
}

func (s *StubSource) Get(_ context.Context, ean string) (*model.ProductInfo, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, ean)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	product, ok := s.Products[ean]
	if !ok {
		return nil, source.ErrNotFound
	}
	return product, nil
}

// ─── Fixtures ──────────────────────────────────────────────────────────

// Product builds a minimal product record with the given declared allergens.
func Product(ean string, declared ...taxonomy.Code) *model.ProductInfo {
	p := &model.ProductInfo{
		EAN:    ean,
		Name:   "Test Product " + ean,
		Source: "stub",
	}
	for _, code := range declared {
		p.Facts = append(p.Facts, model.AllergenFact{
			Code:       code,
			Presence:   model.Contains,
			Source:     "label",
			Weight:     1.0,
			Confidence: 1.0,
		})
	}
	return p
}
