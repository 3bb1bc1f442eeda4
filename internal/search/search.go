package search

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/logging"
	"github.com/dmitrijs2005/captainslog/internal/models"
)

// Repository is the search capability of the transcription store.
type Repository interface {
	Search(ctx context.Context, userID, substr string) ([]*models.SearchResult, error)
}

type Searcher struct {
	repo   Repository
	log    *journal.Log
	userID string
	logger logging.Logger
}

func NewSearcher(repo Repository, log *journal.Log, userID string, logger logging.Logger) *Searcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Searcher{repo: repo, log: log, userID: userID, logger: logger}
}

// Search returns matching entries, newest first. A blank query returns the
// whole list. The repository is asked first; when it fails or finds
// nothing the in-memory list is filtered instead. Search never fails.
func (s *Searcher) Search(ctx context.Context, query string) []journal.Entry {
	if strings.TrimSpace(query) == "" {
		return s.log.Snapshot()
	}

	if s.repo != nil {
		results, err := s.repo.Search(ctx, s.userID, query)
		switch {
		case err != nil:
			s.logger.Warn(ctx, "repository search failed, filtering locally", "error", err)
		case len(results) > 0:
			return s.fromResults(results)
		}
	}
	return s.log.Filter(query)
}

func (s *Searcher) fromResults(results []*models.SearchResult) []journal.Entry {
	out := make([]journal.Entry, 0, len(results))
	for _, r := range results {
		e := journal.Entry{
			ID:         r.RecordingID,
			Date:       r.RecordedAt,
			DurationMs: r.DurationMs,
			Transcript: r.Content,
			Status:     r.Metadata.Status,
			HasAudio:   true,
		}
		if local, ok := s.log.Get(r.RecordingID); ok {
			e.HasAudio = local.HasAudio
			e.StorageFailed = local.StorageFailed
		}
		out = append(out, e)
	}
	return out
}

// Debounced runs Search through d and hands the results to deliver.
func (s *Searcher) Debounced(ctx context.Context, d *Debouncer, query string, deliver func([]journal.Entry)) {
	d.Trigger(func() { deliver(s.Search(ctx, query)) })
}
