package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartChallengeScheduler sweeps guild challenges every minute so expired,
// uncompleted windows are logged and nothing leaks past its end date
// unnoticed even when no request traffic touches the guild.
func (s *GuildService) StartChallengeScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			n, err := s.CloseExpiredChallenges(time.Now())
			if err != nil {
				log.Printf("[Scheduler] challenge sweep error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[Scheduler] %d expired challenge(s) swept", n)
			}
		}),
	)
}
