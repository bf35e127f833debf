package cron

import (
	"context"
	"log/slog"
	"time"
)

// ReminderSender is the slice of the payroll service the reminder job drives
type ReminderSender interface {
	SendReminders(ctx context.Context, staleAfter time.Duration) (int, error)
}

type ReminderJobs struct {
	payrollSvc ReminderSender
	interval   time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
}

func NewReminderJobs(payrollSvc ReminderSender, interval, staleAfter time.Duration, logger *slog.Logger) *ReminderJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderJobs{
		payrollSvc: payrollSvc,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

func (j *ReminderJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("remind_stale_payroll_records", j.interval, j.RemindStaleRecords)
}

// RemindStaleRecords nudges preparers about records waiting on approval or
// dispute resolution for longer than staleAfter.
func (j *ReminderJobs) RemindStaleRecords(ctx context.Context) error {
	sent, err := j.payrollSvc.SendReminders(ctx, j.staleAfter)
	if err != nil {
		return err
	}
	if sent > 0 {
		j.logger.Info("Payroll reminders sent", "count", sent, "stale_after", j.staleAfter)
	}
	return nil
}
