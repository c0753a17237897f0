package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"rewards-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newGuildFixture(t *testing.T) (*GuildService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	ledger := NewLedgerService(db)
	notify := NewNotificationService(db)
	ledger.Notify = notify
	return NewGuildService(db, ledger, notify), db
}

func TestCreateGuild_NameTakenCaseInsensitive(t *testing.T) {
	svc, db := newGuildFixture(t)
	leader := newTestAccount(t, db)
	other := newTestAccount(t, db)

	g, err := svc.CreateGuild(leader.ID, "  night owls ")
	if err != nil {
		t.Fatalf("CreateGuild: %v", err)
	}
	if g.Name != "Night Owls" {
		t.Errorf("Name = %q, want title-cased %q", g.Name, "Night Owls")
	}
	if g.Slug != "night-owls" {
		t.Errorf("Slug = %q, want %q", g.Slug, "night-owls")
	}
	if g.TotalMembers != 1 || g.Level != 1 {
		t.Errorf("new guild = %+v, want 1 member at level 1", g)
	}

	if _, err := svc.CreateGuild(other.ID, "NIGHT OWLS"); !errors.Is(err, models.ErrGuildNameTaken) {
		t.Errorf("duplicate name: err = %v, want ErrGuildNameTaken", err)
	}
}

func TestCreateGuild_LeaderAlreadyInGuild(t *testing.T) {
	svc, db := newGuildFixture(t)
	leader := newTestAccount(t, db)

	if _, err := svc.CreateGuild(leader.ID, "First"); err != nil {
		t.Fatalf("CreateGuild: %v", err)
	}
	if _, err := svc.CreateGuild(leader.ID, "Second"); !errors.Is(err, models.ErrAlreadyInGuild) {
		t.Errorf("second guild: err = %v, want ErrAlreadyInGuild", err)
	}
}

func TestJoinLeaveGuild_MemberCount(t *testing.T) {
	svc, db := newGuildFixture(t)
	leader := newTestAccount(t, db)
	member := newTestAccount(t, db)

	g, err := svc.CreateGuild(leader.ID, "Counters")
	if err != nil {
		t.Fatalf("CreateGuild: %v", err)
	}

	if err := svc.JoinGuild(member.ID, g.ID); err != nil {
		t.Fatalf("JoinGuild: %v", err)
	}
	if err := svc.JoinGuild(member.ID, g.ID); !errors.Is(err, models.ErrAlreadyInGuild) {
		t.Errorf("rejoin: err = %v, want ErrAlreadyInGuild", err)
	}
	if err := svc.JoinGuild(member.ID, uuid.NewString()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("join missing guild: err = %v, want ErrNotFound", err)
	}

	loaded, _, err := svc.GetGuild(g.ID)
	if err != nil {
		t.Fatalf("GetGuild: %v", err)
	}
	if loaded.TotalMembers != 2 {
		t.Errorf("TotalMembers = %d, want 2", loaded.TotalMembers)
	}

	if err := svc.LeaveGuild(member.ID, g.ID); err != nil {
		t.Fatalf("LeaveGuild: %v", err)
	}
	if err := svc.LeaveGuild(member.ID, g.ID); !errors.Is(err, models.ErrNotInGuild) {
		t.Errorf("leave twice: err = %v, want ErrNotInGuild", err)
	}

	loaded, members, err := svc.GetGuild(g.ID)
	if err != nil {
		t.Fatalf("GetGuild: %v", err)
	}
	if loaded.TotalMembers != 1 || len(members) != 1 {
		t.Errorf("after leave: TotalMembers = %d, roster = %d, want 1/1", loaded.TotalMembers, len(members))
	}
}

// Contributions from members, plus a departure, must keep the guild total
// equal to the sum of the remaining memberships' contributions.
func TestContributeXP_AggregationInvariant(t *testing.T) {
	svc, db := newGuildFixture(t)
	leader := newTestAccount(t, db)
	member := newTestAccount(t, db)

	g, err := svc.CreateGuild(leader.ID, "Sum Check")
	if err != nil {
		t.Fatalf("CreateGuild: %v", err)
	}
	if err := svc.JoinGuild(member.ID, g.ID); err != nil {
		t.Fatalf("JoinGuild: %v", err)
	}

	if err := svc.ContributeXP(leader.ID, 300); err != nil {
		t.Fatalf("ContributeXP leader: %v", err)
	}
	if err := svc.ContributeXP(member.ID, 800); err != nil {
		t.Fatalf("ContributeXP member: %v", err)
	}
	if err := svc.ContributeXP(member.ID, 150); err != nil {
		t.Fatalf("ContributeXP member again: %v", err)
	}

	checkInvariant := func(wantTotal int64) {
		t.Helper()
		loaded, members, err := svc.GetGuild(g.ID)
		if err != nil {
			t.Fatalf("GetGuild: %v", err)
		}
		var sum int64
		for _, m := range members {
			sum += m.ContributionXP
		}
		if loaded.TotalXP != sum {
			t.Errorf("TotalXP = %d, member sum = %d, must match", loaded.TotalXP, sum)
		}
		if loaded.TotalXP != wantTotal {
			t.Errorf("TotalXP = %d, want %d", loaded.TotalXP, wantTotal)
		}
	}
	checkInvariant(1250)

	// 1250 XP crosses the 1000 threshold
	loaded, _, _ := svc.GetGuild(g.ID)
	if loaded.Level != 2 {
		t.Errorf("Level = %d, want 2 at 1250 XP", loaded.Level)
	}

	// Departure folds the member's 950 back out
	if err := svc.LeaveGuild(member.ID, g.ID); err != nil {
		t.Fatalf("LeaveGuild: %v", err)
	}
	checkInvariant(300)
}

func TestContributeXP_Errors(t *testing.T) {
	svc, db := newGuildFixture(t)
	loner := newTestAccount(t, db)

	if err := svc.ContributeXP(loner.ID, 10); !errors.Is(err, models.ErrNotInGuild) {
		t.Errorf("no guild: err = %v, want ErrNotInGuild", err)
	}
	if err := svc.ContributeXP(loner.ID, -5); !errors.Is(err, models.ErrNegativeDelta) {
		t.Errorf("negative: err = %v, want ErrNegativeDelta", err)
	}
}

func TestGuildLevel_Table(t *testing.T) {
	tests := []struct {
		totalXP int64
		want    int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{40000, 5},
		{1000000, 9},
		{5000000, 9}, // capped at the table
	}
	for _, tt := range tests {
		if got := guildLevel(tt.totalXP); got != tt.want {
			t.Errorf("guildLevel(%d) = %d, want %d", tt.totalXP, got, tt.want)
		}
	}
}

func newChallengeFixture(t *testing.T) (*GuildService, *models.Guild, []*models.Account) {
	t.Helper()
	svc, db := newGuildFixture(t)
	leader := newTestAccount(t, db)
	member := newTestAccount(t, db)

	g, err := svc.CreateGuild(leader.ID, "Challengers")
	if err != nil {
		t.Fatalf("CreateGuild: %v", err)
	}
	if err := svc.JoinGuild(member.ID, g.ID); err != nil {
		t.Fatalf("JoinGuild: %v", err)
	}
	return svc, g, []*models.Account{leader, member}
}

func TestAdvanceChallenge_PaysEveryMemberOnce(t *testing.T) {
	svc, g, accts := newChallengeFixture(t)

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	ch, err := svc.CreateChallenge(g.ID, "Weekly Grind", 500, 200, 50, start, end)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}

	mid := start.AddDate(0, 0, 3)
	if _, err := svc.AdvanceChallenge(ch.ID, 400, mid); err != nil {
		t.Fatalf("AdvanceChallenge: %v", err)
	}
	// Overshoot completes and clamps
	got, err := svc.AdvanceChallenge(ch.ID, 400, mid)
	if err != nil {
		t.Fatalf("AdvanceChallenge completing: %v", err)
	}
	if !got.Completed || got.CurrentXP != 500 || got.CompletedAt == nil {
		t.Fatalf("challenge = %+v, want completed at clamped 500", got)
	}

	// A replay after completion must not pay anyone again
	if _, err := svc.AdvanceChallenge(ch.ID, 100, mid); err != nil {
		t.Fatalf("AdvanceChallenge replay: %v", err)
	}

	for _, acct := range accts {
		var row models.Account
		if err := svc.DB.Where("id = ?", acct.ID).First(&row).Error; err != nil {
			t.Fatalf("load account: %v", err)
		}
		if row.XP != 200 || row.Gold != 50 {
			t.Errorf("member %s: xp=%d gold=%d, want 200/50 exactly once", acct.ID, row.XP, row.Gold)
		}
	}

	list, err := svc.Notify.FetchUnshown(accts[1].ID)
	if err != nil {
		t.Fatalf("FetchUnshown: %v", err)
	}
	var challengeNotes int
	for _, n := range list {
		if n.Kind == models.NotificationKindChallenge {
			challengeNotes++
		}
	}
	if challengeNotes != 1 {
		t.Errorf("challenge notifications = %d, want 1", challengeNotes)
	}
}

// A ledger outage during payout must roll back the whole completion — stamp,
// progress and every member's grant — so the retried event pays everyone.
func TestAdvanceChallenge_PayoutFailureRollsBackCompletion(t *testing.T) {
	svc, g, accts := newChallengeFixture(t)

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	ch, err := svc.CreateChallenge(g.ID, "Weekly Grind", 100, 200, 50, start, end)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	mid := start.AddDate(0, 0, 3)

	if err := svc.DB.Migrator().DropTable(&models.RewardGrant{}); err != nil {
		t.Fatalf("drop grant table: %v", err)
	}
	if _, err := svc.AdvanceChallenge(ch.ID, 100, mid); err == nil {
		t.Fatal("completing advance succeeded with the ledger down")
	}

	var reloaded models.GuildChallenge
	if err := svc.DB.Where("id = ?", ch.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("load challenge: %v", err)
	}
	if reloaded.Completed || reloaded.CurrentXP != 0 {
		t.Fatalf("challenge = %+v, want fully rolled back", reloaded)
	}

	if err := svc.DB.AutoMigrate(&models.RewardGrant{}); err != nil {
		t.Fatalf("restore grant table: %v", err)
	}
	got, err := svc.AdvanceChallenge(ch.ID, 100, mid)
	if err != nil {
		t.Fatalf("retried AdvanceChallenge: %v", err)
	}
	if !got.Completed {
		t.Fatal("retry should complete the challenge")
	}
	for _, acct := range accts {
		var row models.Account
		svc.DB.Where("id = ?", acct.ID).First(&row)
		if row.XP != 200 || row.Gold != 50 {
			t.Errorf("member %s: xp=%d gold=%d, want 200/50 after recovery", acct.ID, row.XP, row.Gold)
		}
	}
}

// Concurrent advances must all count toward the target: progress moves by a
// statement-level increment, never a read-modify-write.
func TestAdvanceChallenge_ConcurrentIncrementsAllCount(t *testing.T) {
	svc, g, _ := newChallengeFixture(t)

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	ch, err := svc.CreateChallenge(g.ID, "Stacking", 10000, 10, 0, start, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	mid := start.AddDate(0, 0, 1)

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AdvanceChallenge(ch.ID, 5, mid); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent AdvanceChallenge: %v", err)
	}

	var reloaded models.GuildChallenge
	if err := svc.DB.Where("id = ?", ch.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("load challenge: %v", err)
	}
	if want := int64(workers * 5); reloaded.CurrentXP != want {
		t.Errorf("current_xp = %d, want %d with no lost increments", reloaded.CurrentXP, want)
	}
}

func TestAdvanceChallenge_WindowRejected(t *testing.T) {
	svc, g, _ := newChallengeFixture(t)

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	ch, err := svc.CreateChallenge(g.ID, "Timed", 100, 10, 0, start, end)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}

	if _, err := svc.AdvanceChallenge(ch.ID, 10, start.Add(-time.Hour)); !errors.Is(err, models.ErrChallengeClosed) {
		t.Errorf("before start: err = %v, want ErrChallengeClosed", err)
	}
	if _, err := svc.AdvanceChallenge(ch.ID, 10, end); !errors.Is(err, models.ErrChallengeClosed) {
		t.Errorf("at end: err = %v, want ErrChallengeClosed", err)
	}
	if _, err := svc.AdvanceChallenge(ch.ID, -1, start); !errors.Is(err, models.ErrNegativeDelta) {
		t.Errorf("negative: err = %v, want ErrNegativeDelta", err)
	}
	if _, err := svc.AdvanceChallenge(uuid.NewString(), 10, start); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing challenge: err = %v, want ErrNotFound", err)
	}
}

func TestCloseExpiredChallenges(t *testing.T) {
	svc, g, _ := newChallengeFixture(t)

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.CreateChallenge(g.ID, "Missed", 100, 10, 0, start, start.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if _, err := svc.CreateChallenge(g.ID, "Live", 100, 10, 0, start, start.AddDate(0, 0, 30)); err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}

	n, err := svc.CloseExpiredChallenges(start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("CloseExpiredChallenges: %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}
}
