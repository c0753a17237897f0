// workers/leaderboard_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"rewards-engine/services"
)

// PollLeaderboard periodically rebuilds the Redis leaderboard from Postgres.
// Per-credit bumps keep it fresh between rebuilds; the rebuild heals any
// bump missed while Redis was unreachable.
func PollLeaderboard(ctx context.Context, board *services.LeaderboardService, pollInterval time.Duration) {
	log.Println("Starting leaderboard polling (Postgres → Redis)...")

	// Populate immediately so a fresh Redis instance is never empty
	if err := board.Rebuild(); err != nil {
		log.Printf("❌ Initial leaderboard rebuild failed: %v", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Leaderboard polling stopped.")
			return
		case <-ticker.C:
			if err := board.Rebuild(); err != nil {
				log.Printf("❌ Leaderboard rebuild failed: %v", err)
			}
		}
	}
}
