package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/criapa/DOE-PE/internal/logger"
)

// Service owns the store and reloads it from the reports directory
type Service struct {
	dir   string
	store *Store
	log   *slog.Logger

	mu   sync.RWMutex
	last LoadResult
	size int
}

// NewService opens an empty store for reports in dir; call Reload to fill it
func NewService(ctx context.Context, dir string, log *slog.Logger) (*Service, error) {
	store, err := OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	return &Service{dir: dir, store: store, log: logger.OrDiscard(log)}, nil
}

// Store returns the query store
func (s *Service) Store() *Store {
	return s.store
}

// Reload reads the reports directory again and replaces the stored records
func (s *Service) Reload(ctx context.Context) (LoadResult, error) {
	res, err := LoadReports(s.dir)
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Replace(ctx, res.Records); err != nil {
		return res, err
	}
	s.last = res
	s.size = len(res.Records)

	for _, le := range res.Errors {
		s.log.Warn("report skipped", slog.String("file", le.File), slog.String("err", le.Err))
	}
	s.log.Info("reports loaded",
		slog.String("dir", s.dir),
		slog.Int("files", res.Files),
		slog.Int("records", len(res.Records)),
	)
	return res, nil
}

// Size returns the number of loaded records
func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// LastLoad returns the result of the latest reload
func (s *Service) LastLoad() LoadResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Close releases the store
func (s *Service) Close() error {
	return s.store.Close()
}
