// services/scheduler.go
package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRewardSchedulers wires the weekly batch jobs: the fair-play award at
// Sunday 00:00 UTC and the ledger export half an hour later.
func StartRewardSchedulers(fairPlay *FairPlayService, export *LedgerExportService) {
	sched, _ := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	sched.Start()

	_, _ = sched.NewJob(
		gocron.CronJob("0 0 * * 0", false),
		gocron.NewTask(func() {
			awarded, err := fairPlay.RunWeeklyAward()
			if err != nil {
				log.Printf("[Scheduler] fair-play run failed: %v", err)
				return
			}
			log.Printf("[Scheduler] ✅ fair-play run awarded %d user(s)", awarded)
		}),
	)

	_, _ = sched.NewJob(
		gocron.CronJob("30 0 * * 0", false),
		gocron.NewTask(func() {
			key, err := export.Export(context.Background())
			if err != nil {
				if errors.Is(err, ErrExportDisabled) {
					log.Printf("[Scheduler] ledger export skipped: %v", err)
					return
				}
				log.Printf("[Scheduler] ledger export failed: %v", err)
				return
			}
			log.Printf("[Scheduler] ✅ ledger exported to %s", key)
		}),
	)
}
