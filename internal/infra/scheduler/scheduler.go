package scheduler

import (
	"context"
	"time"

	"mentor_feedback_bot/internal/app" // For FeedbackService interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// FeedbackScheduler runs the two periodic loops, meeting discovery and
// pending-questionnaire reminders. Each job gets its own timeout context
// and catches failures at its boundary; a failed cycle never stops the cron
// engine.
type FeedbackScheduler struct {
	cronEngine        *cron.Cron
	feedbackService   app.FeedbackService
	logger            *logrus.Entry
	cronSpecDiscovery string
	cronSpecReminder  string
}

func NewFeedbackScheduler(
	feedbackService app.FeedbackService,
	logger *logrus.Entry,
	cronSpecDiscovery string, // e.g., "0 */8 * * *" (every 8 hours)
	cronSpecReminder string, // e.g., "30 */8 * * *"
) *FeedbackScheduler {
	return &FeedbackScheduler{
		cronEngine:        cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		feedbackService:   feedbackService,
		logger:            logger,
		cronSpecDiscovery: cronSpecDiscovery,
		cronSpecReminder:  cronSpecReminder,
	}
}

func (s *FeedbackScheduler) Start() {
	s.logger.Info("Starting feedback scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecDiscovery, func() {
		s.logger.Info("Cron job triggered for meeting discovery.")
		s.runDiscovery()
	})
	if err != nil {
		s.logger.Fatalf("Could not add meeting discovery cron job: %v", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecReminder, func() {
		s.logger.Info("Cron job triggered for pending questionnaire reminders.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.feedbackService.RunReminderCycle(ctx); err != nil {
			s.logger.WithError(err).Error("Reminder cycle failed")
		}
	})
	if err != nil {
		s.logger.Fatalf("Could not add reminder cron job: %v", err)
	}

	s.cronEngine.Start()

	// First discovery pass runs immediately; the cron specs only bound the
	// steady-state period. Re-running after a restart is safe: the
	// processed-meeting set makes the pass idempotent.
	go s.runDiscovery()

	s.logger.Info("Feedback scheduler started with jobs.")
}

func (s *FeedbackScheduler) runDiscovery() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := s.feedbackService.RunDiscoveryCycle(ctx); err != nil {
		s.logger.WithError(err).Error("Discovery cycle failed")
	}
}

func (s *FeedbackScheduler) Stop() {
	s.logger.Info("Stopping feedback scheduler...")
	ctx := s.cronEngine.Stop() // Stops scheduling new runs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Feedback scheduler gracefully stopped.")
}
