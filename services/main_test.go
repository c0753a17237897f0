package services

import (
	"fmt"
	"testing"

	"rewards-engine/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB returns an isolated in-memory database with the full schema.
// A single pooled connection serializes concurrent transactions the way the
// production Postgres row locks would.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Account{},
		&models.RewardGrant{},
		&models.LoginStreak{},
		&models.AchievementDefinition{},
		&models.BadgeTier{},
		&models.BadgeProgress{},
		&models.Guild{},
		&models.GuildMembership{},
		&models.GuildChallenge{},
		&models.LootBoxDefinition{},
		&models.LootReward{},
		&models.LootBoxInstance{},
		&models.QuestTemplate{},
		&models.QuestCompletion{},
		&models.AchievementNotification{},
		&models.MirroredAccount{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// newTestAccount creates an Account row and returns it.
func newTestAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	acct := &models.Account{
		ID:             uuid.NewString(),
		ExternalUserID: uuid.NewString(),
	}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("create test account: %v", err)
	}
	return acct
}
