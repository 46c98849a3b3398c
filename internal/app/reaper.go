package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper deletes expired sessions on a fixed interval. Each sweep takes
// the hub lock, so it serializes with message handling.
type Reaper struct {
	Hub      *Hub
	Interval time.Duration
}

func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reaper").Msg("reaper stopped")
			return
		case <-t.C:
			if n := r.Hub.Sweep(); n > 0 {
				log.Info().Str("module", "app.reaper").Int("evicted", n).Msg("swept expired sessions")
			}
		}
	}
}
