package services

import (
	"context"
	"log"

	"rewards-engine/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const leaderboardKey = "rewards:leaderboard:xp"

// LeaderboardService keeps the global XP ranking in a Redis sorted set.
// Scores are bumped on every ledger credit and rebuilt periodically from
// Postgres, so Redis stays a cache, never the source of truth.
type LeaderboardService struct {
	DB  *gorm.DB
	RDB *redis.Client
	Ctx context.Context
}

func NewLeaderboardService(db *gorm.DB, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, RDB: rdb, Ctx: context.Background()}
}

// LeaderboardEntry is the UI-facing row.
type LeaderboardEntry struct {
	Rank      int64  `json:"rank"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Referrals int64  `json:"referrals"`
	XP        int64  `json:"xp"`
}

// SetScore writes one account's XP into the sorted set.
func (s *LeaderboardService) SetScore(accountID string, xp int64) error {
	return s.RDB.ZAdd(s.Ctx, leaderboardKey, redis.Z{
		Score:  float64(xp),
		Member: accountID,
	}).Err()
}

// Top returns the first n entries, highest XP first, joined with mirrored
// usernames and referral counts.
func (s *LeaderboardService) Top(n int64) ([]LeaderboardEntry, error) {
	if n < 1 {
		n = 10
	}
	zs, err := s.RDB.ZRevRangeWithScores(s.Ctx, leaderboardKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		accountID, _ := z.Member.(string)
		entry := LeaderboardEntry{
			Rank:      int64(i) + 1,
			AccountID: accountID,
			XP:        int64(z.Score),
		}

		var acct models.Account
		if err := s.DB.Where("id = ?", accountID).First(&acct).Error; err == nil {
			var mirror models.MirroredAccount
			if err := s.DB.Where("external_user_id = ?", acct.ExternalUserID).First(&mirror).Error; err == nil {
				entry.Username = mirror.Username
				entry.Referrals = mirror.ReferralCount
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Rank returns the 1-based rank for one account, 0 when unranked.
func (s *LeaderboardService) Rank(accountID string) (int64, error) {
	rank, err := s.RDB.ZRevRank(s.Ctx, leaderboardKey, accountID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rank + 1, nil
}

// Rebuild repopulates the sorted set from the accounts table. Run by the
// polling worker so evictions or missed bumps self-heal.
func (s *LeaderboardService) Rebuild() error {
	var accounts []models.Account
	if err := s.DB.Find(&accounts).Error; err != nil {
		return err
	}
	if len(accounts) == 0 {
		return nil
	}

	zs := make([]redis.Z, 0, len(accounts))
	for _, a := range accounts {
		zs = append(zs, redis.Z{Score: float64(a.XP), Member: a.ID})
	}
	if err := s.RDB.ZAdd(s.Ctx, leaderboardKey, zs...).Err(); err != nil {
		return err
	}
	log.Printf("🏅 [LEADERBOARD] Rebuilt with %d account(s)", len(accounts))
	return nil
}
