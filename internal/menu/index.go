package menu

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultThreshold = 70.0

// Source supplies the current catalog. The catalog store owns the data; the
// index only keeps a read-only copy of it.
type Source interface {
	ListMenuEntries(ctx context.Context) ([]Entry, error)
}

type snapshot struct {
	entries  []Entry
	names    []string // normalized, parallel to entries
	loadedAt time.Time
}

// Index answers fuzzy name lookups over a catalog snapshot.
//
// Lookups never lock: the snapshot is swapped atomically on refresh.
type Index struct {
	src       Source
	threshold float64
	maxAge    time.Duration
	logger    *slog.Logger

	snap      atomic.Pointer[snapshot]
	refreshMu sync.Mutex
	now       func() time.Time
}

type Option func(*Index)

// WithThreshold sets the minimum accepted score. A higher threshold means
// fewer false-positive matches and more unknown-item clarifications.
func WithThreshold(t float64) Option {
	return func(ix *Index) { ix.threshold = t }
}

// WithMaxAge bounds how stale a snapshot may get before Ensure reloads it.
// Zero reloads on every Ensure call.
func WithMaxAge(d time.Duration) Option {
	return func(ix *Index) { ix.maxAge = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

func NewIndex(src Source, opts ...Option) *Index {
	ix := &Index{
		src:       src,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// NewStaticIndex builds an index over a fixed set of entries.
func NewStaticIndex(entries []Entry, opts ...Option) *Index {
	ix := NewIndex(nil, opts...)
	ix.snap.Store(ix.build(entries))
	return ix
}

func (ix *Index) Threshold() float64 { return ix.threshold }

// Refresh reloads the catalog from the source.
func (ix *Index) Refresh(ctx context.Context) error {
	if ix.src == nil {
		return nil
	}

	ix.refreshMu.Lock()
	defer ix.refreshMu.Unlock()

	entries, err := ix.src.ListMenuEntries(ctx)
	if err != nil {
		return fmt.Errorf("list menu entries: %w", err)
	}

	ix.snap.Store(ix.build(entries))
	ix.logger.Debug("menu index refreshed", "entries", len(entries))

	return nil
}

// Ensure refreshes the snapshot when it is missing or older than the
// configured max age. A failed refresh keeps serving the previous snapshot.
func (ix *Index) Ensure(ctx context.Context) error {
	s := ix.snap.Load()
	if s != nil && (ix.src == nil || ix.now().Sub(s.loadedAt) < ix.maxAge) {
		return nil
	}

	err := ix.Refresh(ctx)
	if err != nil && s != nil {
		ix.logger.Warn("menu refresh failed, serving stale snapshot", "err", err, "age", ix.now().Sub(s.loadedAt))
		return nil
	}

	return err
}

// Entries returns the current snapshot, items before deals, each by name.
func (ix *Index) Entries() []Entry {
	s := ix.snap.Load()
	if s == nil {
		return nil
	}

	out := append([]Entry(nil), s.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category != CategoryDeal
		}
		return out[i].Name < out[j].Name
	})

	return out
}

// FindBestMatch returns the highest scoring entry at or above the threshold.
// Equal scores prefer a name containing the candidate, then the shorter name.
func (ix *Index) FindBestMatch(candidate string) (Match, error) {
	s := ix.snap.Load()
	c := Normalize(candidate)
	if s == nil || c == "" {
		return Match{}, ErrNotFound
	}

	bestIdx := -1
	var bestScore float64

	for i, e := range s.entries {
		score := round2(Score(candidate, e.Name))
		if score < ix.threshold {
			continue
		}
		if bestIdx < 0 || score > bestScore || (score == bestScore && s.better(i, bestIdx, c)) {
			bestIdx, bestScore = i, score
		}
	}

	if bestIdx < 0 {
		return Match{}, ErrNotFound
	}

	return Match{Entry: s.entries[bestIdx], Score: bestScore}, nil
}

// BestScore reports the top score for candidate regardless of threshold.
func (ix *Index) BestScore(candidate string) float64 {
	s := ix.snap.Load()
	if s == nil {
		return 0
	}

	var best float64
	for _, e := range s.entries {
		if sc := round2(Score(candidate, e.Name)); sc > best {
			best = sc
		}
	}
	return best
}

func (s *snapshot) better(i, j int, candidate string) bool {
	ci := strings.Contains(s.names[i], candidate)
	cj := strings.Contains(s.names[j], candidate)
	if ci != cj {
		return ci
	}
	if len(s.names[i]) != len(s.names[j]) {
		return len(s.names[i]) < len(s.names[j])
	}
	return s.names[i] < s.names[j]
}

func (ix *Index) build(entries []Entry) *snapshot {
	s := &snapshot{
		entries:  append([]Entry(nil), entries...),
		names:    make([]string, len(entries)),
		loadedAt: ix.now(),
	}
	for i, e := range entries {
		s.names[i] = Normalize(e.Name)
	}
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
