package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/account"
	"freshiesAPI/internal/activity"
	"freshiesAPI/internal/db"
	"freshiesAPI/internal/notification"
	"freshiesAPI/internal/reminder"
)

type ReminderStore interface {
	ListCompletionsBySegment(ctx context.Context, childID uuid.UUID, segment activity.Segment) ([]*activity.Completion, error)
	UpsertReminder(ctx context.Context, r *reminder.Reminder) (*reminder.Reminder, error)
	ListReminders(ctx context.Context, childID uuid.UUID) ([]*reminder.Reminder, error)
	ListEnabledReminders(ctx context.Context) ([]*reminder.Reminder, error)
	ClaimReminder(ctx context.Context, id uuid.UUID, day time.Time) (bool, error)
}

type ReminderService struct {
	store    ReminderStore
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewReminderService(store ReminderStore, notifier Notifier, loc *time.Location, log *zap.SugaredLogger) *ReminderService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderService{store: store, notifier: notifier, loc: loc, now: time.Now, log: log}
}

// SuggestTime proposes a reminder time in minutes past local midnight from
// the child's completion history in segment.
func (s *ReminderService) SuggestTime(ctx context.Context, childID uuid.UUID, segment activity.Segment) (int, error) {
	if !segment.Valid() {
		return 0, activity.ErrInvalidSegment
	}
	completions, err := s.store.ListCompletionsBySegment(ctx, childID, segment)
	if err != nil {
		return 0, err
	}
	return reminder.SuggestTime(segment, completions, s.loc), nil
}

// UpsertReminder saves the child's reminder for segment. A nil timeOfDay
// uses the suggested time.
func (s *ReminderService) UpsertReminder(ctx context.Context, childID uuid.UUID, segment activity.Segment, timeOfDay *int, enabled bool) (*reminder.Reminder, error) {
	if !segment.Valid() {
		return nil, activity.ErrInvalidSegment
	}

	var minutes int
	if timeOfDay != nil {
		if err := reminder.ValidTime(*timeOfDay); err != nil {
			return nil, err
		}
		minutes = *timeOfDay
	} else {
		suggested, err := s.SuggestTime(ctx, childID, segment)
		if err != nil {
			return nil, err
		}
		minutes = suggested
	}

	r, err := s.store.UpsertReminder(ctx, &reminder.Reminder{
		ID:        uuid.New(),
		ChildID:   childID,
		Segment:   segment,
		TimeOfDay: minutes,
		Enabled:   enabled,
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, account.ErrChildNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *ReminderService) ListReminders(ctx context.Context, childID uuid.UUID) ([]*reminder.Reminder, error) {
	return s.store.ListReminders(ctx, childID)
}

// FireDue sends every enabled reminder whose time has passed today and that
// has not been sent today. It runs as a ticker job.
func (s *ReminderService) FireDue(ctx context.Context) error {
	now := s.now().In(s.loc)
	today := activity.CalendarDate(now, s.loc)
	minute := now.Hour()*60 + now.Minute()

	reminders, err := s.store.ListEnabledReminders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reminders: %w", err)
	}

	var errs []error
	sent := 0
	for _, r := range reminders {
		if !r.Due(today, minute) {
			continue
		}
		claimed, err := s.store.ClaimReminder(ctx, r.ID, today)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !claimed {
			continue
		}

		err = s.notifier.Notify(ctx, r.ChildID, &notification.Message{
			Type:  notification.TypeReminder,
			Title: "🧴 Routine time",
			Body:  fmt.Sprintf("Time for your %s routine!", r.Segment),
			Data: map[string]any{
				"type":    string(notification.TypeReminder),
				"segment": string(r.Segment),
			},
		})
		if err != nil {
			s.log.Warnw("reminder notification dropped", "child_id", r.ChildID, "segment", r.Segment, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		s.log.Infow("reminders sent", "count", sent)
	}
	return errors.Join(errs...)
}
