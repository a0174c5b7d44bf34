package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/Replant-Application/Replant-BE-sub002/cache"
	"github.com/Replant-Application/Replant-BE-sub002/config"
	"github.com/Replant-Application/Replant-BE-sub002/logger"
	"github.com/Replant-Application/Replant-BE-sub002/models"
)

// Scheduler owns the recurring jobs: the deadline sweep, the cadence
// distributions, and the hunger decay tick. Every job body takes a
// Redis lock first so only one replica runs a given tick.
type Scheduler struct {
	missions   *MissionService
	companions *CompanionService
	cron       gocron.Scheduler
}

func NewScheduler(missions *MissionService, companions *CompanionService) *Scheduler {
	return &Scheduler{missions: missions, companions: companions}
}

func (s *Scheduler) Start() error {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.cron = cron

	sweepEvery := config.Cfg.SweepIntervalMinutes
	if sweepEvery < 1 {
		sweepEvery = 1
	}

	_, err = cron.NewJob(
		gocron.DurationJob(time.Duration(sweepEvery)*time.Minute),
		gocron.NewTask(func() {
			s.runLocked("sweep", time.Duration(sweepEvery)*time.Minute, func() error {
				_, err := s.missions.SweepExpired(time.Now())
				return err
			})
		}),
	)
	if err != nil {
		return err
	}

	_, err = cron.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(7, 0, 0))),
		gocron.NewTask(func() {
			s.runLocked("distribute:daily", 10*time.Minute, func() error {
				_, err := s.missions.Distribute(models.CadenceDaily, time.Now())
				return err
			})
		}),
	)
	if err != nil {
		return err
	}

	_, err = cron.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), gocron.NewAtTimes(gocron.NewAtTime(7, 0, 0))),
		gocron.NewTask(func() {
			s.runLocked("distribute:weekly", 10*time.Minute, func() error {
				_, err := s.missions.Distribute(models.CadenceWeekly, time.Now())
				return err
			})
		}),
	)
	if err != nil {
		return err
	}

	_, err = cron.NewJob(
		gocron.MonthlyJob(1, gocron.NewDaysOfTheMonth(1), gocron.NewAtTimes(gocron.NewAtTime(7, 0, 0))),
		gocron.NewTask(func() {
			s.runLocked("distribute:monthly", 10*time.Minute, func() error {
				_, err := s.missions.Distribute(models.CadenceMonthly, time.Now())
				return err
			})
		}),
	)
	if err != nil {
		return err
	}

	_, err = cron.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			s.runLocked("hunger-decay", time.Hour, func() error {
				_, err := s.companions.DecayHungerAll()
				return err
			})
		}),
	)
	if err != nil {
		return err
	}

	cron.Start()
	logger.L.Info("⏱️ Scheduler started",
		zap.Int("sweep_interval_minutes", sweepEvery),
	)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		_ = s.cron.Shutdown()
	}
}

// runLocked executes fn only when this replica wins the tick's lock.
// The lock expires on its own; a tick that dies mid-run just leaves the
// work for the next interval, every job being idempotent.
func (s *Scheduler) runLocked(name string, ttl time.Duration, fn func() error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ok, err := cache.TryLock(ctx, name, ttl)
	if err != nil {
		logger.L.Warn("Scheduler lock unavailable, running tick anyway",
			zap.String("job", name),
			zap.Error(err),
		)
	} else if !ok {
		return
	}

	if err := fn(); err != nil {
		logger.L.Error("Scheduler job failed",
			zap.String("job", name),
			zap.Error(err),
		)
	}
}
