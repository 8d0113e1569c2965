package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunHistoryPruner trims every guild's command history to keep records once
// per interval until ctx is done. Call from main or app lifecycle.
func RunHistoryPruner(ctx context.Context, store *Storage, interval time.Duration, keep int, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PruneCommandsHistory(keep)
			if err != nil {
				log.Error().Err(err).Msg("error pruning command history")
				continue
			}
			if n > 0 {
				log.Debug().Int("removed", n).Msg("pruned command history")
			}
		}
	}
}
