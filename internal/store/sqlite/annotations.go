package sqlite

import (
	"context"
	"fmt"

	"github.com/mirador-app/mirador-server/internal/domain"
)

// SetRating upserts a per-user rating/favorite annotation.
func (s *Store) SetRating(ctx context.Context, r *domain.Rating) error {
	favorite := 0
	if r.Favorite {
		favorite = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ratings (user_id, entity_type, entity_id, rating100, favorite, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, entity_type, entity_id) DO UPDATE SET
			rating100 = excluded.rating100,
			favorite = excluded.favorite,
			updated_at = excluded.updated_at`,
		r.UserID, string(r.EntityType), r.EntityID, r.Rating100, favorite, formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// SetWatchStats upserts a per-user playback summary.
func (s *Store) SetWatchStats(ctx context.Context, w *domain.WatchStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_stats (user_id, entity_type, entity_id, view_count, play_duration_sec, last_viewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, entity_type, entity_id) DO UPDATE SET
			view_count = excluded.view_count,
			play_duration_sec = excluded.play_duration_sec,
			last_viewed_at = excluded.last_viewed_at`,
		w.UserID, string(w.EntityType), w.EntityID, w.ViewCount, w.PlayDurationSec,
		nullTimeString(w.LastViewedAt))
	if err != nil {
		return fmt.Errorf("upsert watch stats: %w", err)
	}
	return nil
}
