// Package scheduler runs the habit reminder jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/habit_tracker/internal/config"
	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const runTimeout = 5 * time.Minute

// ReminderSender is implemented by services.ReminderService.
type ReminderSender interface {
	SendScheduledReminders(ctx context.Context, window string) (services.ReminderStats, error)
}

// StartReminderCronJobs schedules one reminder run per notification window and starts the cron.
// The caller stops it with Stop on shutdown.
func StartReminderCronJobs(sender ReminderSender, cfg config.SchedulerConfig) (*cron.Cron, error) {
	c := cron.New()

	jobs := []struct {
		spec   string
		window string
	}{
		{cfg.MorningSpec, models.TimeMorning},
		{cfg.AfternoonSpec, models.TimeAfternoon},
		{cfg.EveningSpec, models.TimeEvening},
	}
	for _, job := range jobs {
		window := job.window
		if _, err := c.AddFunc(job.spec, func() { runReminders(sender, window) }); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q for %s reminders: %w", job.spec, window, err)
		}
	}

	c.Start()
	logrus.WithFields(logrus.Fields{
		"morning":   cfg.MorningSpec,
		"afternoon": cfg.AfternoonSpec,
		"evening":   cfg.EveningSpec,
	}).Info("Habit reminder cron jobs started")
	return c, nil
}

func runReminders(sender ReminderSender, window string) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := sender.SendScheduledReminders(ctx, window); err != nil {
		logrus.WithError(err).WithField("window", window).Error("SendScheduledReminders failed")
	}
}
