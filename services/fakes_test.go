package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"freshiesAPI/internal/account"
	"freshiesAPI/internal/achievement"
	"freshiesAPI/internal/activity"
	"freshiesAPI/internal/db"
	"freshiesAPI/internal/notification"
	"freshiesAPI/internal/photo"
	"freshiesAPI/internal/points"
	"freshiesAPI/internal/reminder"
)

var errStoreDown = errors.New("connection reset by peer")

// fakeStore is an in-memory stand-in for db.Store.
type fakeStore struct {
	mu sync.Mutex

	snapshots   map[uuid.UUID]*activity.Snapshot
	catalog     []*achievement.Achievement
	unlocks     map[uuid.UUID][]*achievement.Unlock
	completions []*activity.Completion
	streaks     map[uuid.UUID]*activity.Streak
	ledgers     map[uuid.UUID]*points.Ledger
	parents     map[string]*account.Parent
	children    map[uuid.UUID]*account.Child
	notes       []*notification.Notification
	tokens      map[uuid.UUID][]notification.DeviceToken
	reminders   map[uuid.UUID]*reminder.Reminder
	photos      []*photo.Photo
	sent        map[uuid.UUID]bool
	failed      map[uuid.UUID]string

	snapshotErr error
	catalogErr  error
	insertErr   error
	datesErr    error
	catalogHits int
	awardCalls  []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshots: map[uuid.UUID]*activity.Snapshot{},
		unlocks:   map[uuid.UUID][]*achievement.Unlock{},
		streaks:   map[uuid.UUID]*activity.Streak{},
		ledgers:   map[uuid.UUID]*points.Ledger{},
		parents:   map[string]*account.Parent{},
		children:  map[uuid.UUID]*account.Child{},
		tokens:    map[uuid.UUID][]notification.DeviceToken{},
		reminders: map[uuid.UUID]*reminder.Reminder{},
		sent:      map[uuid.UUID]bool{},
		failed:    map[uuid.UUID]string{},
	}
}

func (f *fakeStore) addParentWithChild(clerkID string) (*account.Parent, *account.Child) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &account.Parent{ID: uuid.New(), ClerkID: clerkID}
	c := &account.Child{ID: uuid.New(), ParentID: p.ID, DisplayName: "Kid"}
	f.parents[clerkID] = p
	f.children[c.ID] = c
	f.snapshots[c.ID] = &activity.Snapshot{}
	return p, c
}

func (f *fakeStore) GetActivitySnapshot(_ context.Context, childID uuid.UUID) (*activity.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	snap, ok := f.snapshots[childID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

func (f *fakeStore) ListActiveAchievements(context.Context) ([]*achievement.Achievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogHits++
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	var out []*achievement.Achievement
	for _, a := range f.catalog {
		if a.IsActive {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier.Rank() != out[j].Tier.Rank() {
			return out[i].Tier.Rank() < out[j].Tier.Rank()
		}
		return out[i].RequirementValue < out[j].RequirementValue
	})
	return out, nil
}

func (f *fakeStore) ListUnlocks(_ context.Context, childID uuid.UUID) ([]*achievement.Unlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*achievement.Unlock(nil), f.unlocks[childID]...), nil
}

func (f *fakeStore) InsertUnlock(_ context.Context, u *achievement.Unlock) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	for _, existing := range f.unlocks[u.ChildID] {
		if existing.AchievementID == u.AchievementID {
			return false, nil
		}
	}
	cp := *u
	f.unlocks[u.ChildID] = append(f.unlocks[u.ChildID], &cp)
	return true, nil
}

func (f *fakeStore) unlockCount(childID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unlocks[childID])
}

func (f *fakeStore) ListCompletionDates(_ context.Context, childID uuid.UUID, since time.Time) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.datesErr != nil {
		return nil, f.datesErr
	}
	var dates []time.Time
	for _, c := range f.completions {
		if c.ChildID == childID && !c.CompletedAt.Before(since) {
			dates = append(dates, c.CompletionDate)
		}
	}
	return dates, nil
}

func (f *fakeStore) ListCompletionsBySegment(_ context.Context, childID uuid.UUID, segment activity.Segment) ([]*activity.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*activity.Completion
	for _, c := range f.completions {
		if c.ChildID == childID && c.Segment == segment {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) addCompletion(childID uuid.UUID, segment activity.Segment, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions = append(f.completions, &activity.Completion{
		ID:             uuid.New(),
		ChildID:        childID,
		Segment:        segment,
		CompletedAt:    at,
		CompletionDate: activity.CalendarDate(at, time.UTC),
	})
}

func (f *fakeStore) RecordCompletion(_ context.Context, c *activity.Completion) (*activity.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.children[c.ChildID]; !ok {
		return nil, db.ErrNotFound
	}
	f.completions = append(f.completions, c)
	streak, ok := f.streaks[c.ChildID]
	if !ok {
		streak = &activity.Streak{ChildID: c.ChildID}
	}
	next := streak.Advance(c.CompletionDate)
	f.streaks[c.ChildID] = &next

	snap := f.snapshots[c.ChildID]
	snap.TotalCompletions++
	snap.CurrentStreak = next.CurrentStreak
	return &next, nil
}

func (f *fakeStore) GetStreak(_ context.Context, childID uuid.UUID) (*activity.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.streaks[childID]; ok {
		cp := *s
		return &cp, nil
	}
	return &activity.Streak{ChildID: childID}, nil
}

func (f *fakeStore) AwardPoints(_ context.Context, childID uuid.UUID, amount int) (*points.AwardResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awardCalls = append(f.awardCalls, amount)
	l, ok := f.ledgers[childID]
	if !ok {
		l = points.DefaultLedger(childID)
		f.ledgers[childID] = l
	}
	start := l.CurrentLevel
	l.TotalPoints += amount
	l.LifetimePoints += amount
	for l.TotalPoints >= l.PointsToNextLevel {
		l.TotalPoints -= l.PointsToNextLevel
		l.CurrentLevel++
		l.PointsToNextLevel = 100 + (l.CurrentLevel-1)*50
	}
	return &points.AwardResult{NewTotal: l.TotalPoints, NewLevel: l.CurrentLevel, LeveledUp: l.CurrentLevel > start}, nil
}

func (f *fakeStore) GetPointsLedger(_ context.Context, childID uuid.UUID) (*points.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.ledgers[childID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) UpsertParent(_ context.Context, p *account.Parent) (*account.Parent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.parents[p.ClerkID]; ok {
		existing.Email, existing.DisplayName = p.Email, p.DisplayName
		return existing, nil
	}
	cp := *p
	f.parents[p.ClerkID] = &cp
	return &cp, nil
}

func (f *fakeStore) GetParentByClerkID(_ context.Context, clerkID string) (*account.Parent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.parents[clerkID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) DeleteParentByClerkID(_ context.Context, clerkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.parents[clerkID]
	if !ok {
		return db.ErrNotFound
	}
	delete(f.parents, clerkID)
	for id, c := range f.children {
		if c.ParentID == p.ID {
			delete(f.children, id)
		}
	}
	return nil
}

func (f *fakeStore) InsertChild(_ context.Context, c *account.Child) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children[c.ID] = c
	f.snapshots[c.ID] = &activity.Snapshot{}
	return nil
}

func (f *fakeStore) GetChild(_ context.Context, childID uuid.UUID) (*account.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.children[childID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListChildren(_ context.Context, parentID uuid.UUID) ([]*account.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*account.Child{}
	for _, c := range f.children {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertNotification(_ context.Context, n *notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.CreatedAt = time.Now()
	f.notes = append(f.notes, n)
	return nil
}

func (f *fakeStore) ListNotifications(_ context.Context, recipientID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []*notification.Notification
	for _, n := range f.notes {
		if n.RecipientID == recipientID {
			mine = append(mine, n)
		}
	}
	if offset >= len(mine) {
		return []*notification.Notification{}, nil
	}
	return mine[offset:min(offset+limit, len(mine))], nil
}

func (f *fakeStore) UpsertDeviceToken(_ context.Context, parentID uuid.UUID, token, platform string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens[parentID] {
		if t.Token == token {
			return nil
		}
	}
	f.tokens[parentID] = append(f.tokens[parentID], notification.DeviceToken{Token: token, Platform: platform, AddedAt: time.Now()})
	return nil
}

func (f *fakeStore) ListDeviceTokens(_ context.Context, parentID uuid.UUID) ([]notification.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.DeviceToken(nil), f.tokens[parentID]...), nil
}

func (f *fakeStore) MarkNotificationSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[id] = true
	return nil
}

func (f *fakeStore) MarkNotificationFailed(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
	return nil
}

func (f *fakeStore) delivery(id uuid.UUID) (sent bool, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[id], f.failed[id]
}

func (f *fakeStore) UpsertReminder(_ context.Context, r *reminder.Reminder) (*reminder.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.children[r.ChildID]; !ok {
		return nil, db.ErrNotFound
	}
	for _, existing := range f.reminders {
		if existing.ChildID == r.ChildID && existing.Segment == r.Segment {
			existing.TimeOfDay, existing.Enabled = r.TimeOfDay, r.Enabled
			cp := *existing
			return &cp, nil
		}
	}
	cp := *r
	f.reminders[r.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) ListReminders(_ context.Context, childID uuid.UUID) ([]*reminder.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*reminder.Reminder{}
	for _, r := range f.reminders {
		if r.ChildID == childID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListEnabledReminders(context.Context) ([]*reminder.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*reminder.Reminder{}
	for _, r := range f.reminders {
		if r.Enabled {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimReminder(_ context.Context, id uuid.UUID, day time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok || (r.LastSentOn != nil && !r.LastSentOn.Before(day)) {
		return false, nil
	}
	r.LastSentOn = &day
	return true, nil
}

func (f *fakeStore) InsertPhoto(_ context.Context, p *photo.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.children[p.ChildID]; !ok {
		return db.ErrNotFound
	}
	f.photos = append(f.photos, p)
	return nil
}

func (f *fakeStore) ListPhotos(_ context.Context, childID uuid.UUID) ([]*photo.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*photo.Photo
	for _, p := range f.photos {
		if p.ChildID == childID {
			out = append(out, p)
		}
	}
	return out, nil
}

// recordingNotifier captures messages instead of delivering them.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []*notification.Message
	to   []uuid.UUID
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, childID uuid.UUID, msg *notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	n.to = append(n.to, childID)
	return n.err
}

func (n *recordingNotifier) messages() []*notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*notification.Message(nil), n.msgs...)
}

type failingAwarder struct{ calls int }

func (a *failingAwarder) AwardPoints(context.Context, uuid.UUID, int) (*points.AwardResult, error) {
	a.calls++
	return nil, errStoreDown
}

type recordingPush struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *recordingPush) SendPush(context.Context, []notification.DeviceToken, string, string, map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *recordingPush) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newAchievement(code string, tier achievement.Tier, rt achievement.RequirementType, value, pts int) *achievement.Achievement {
	return &achievement.Achievement{
		ID:               uuid.New(),
		Code:             code,
		Name:             code,
		Emoji:            "🏅",
		Tier:             tier,
		RequirementType:  rt,
		RequirementValue: value,
		Points:           pts,
		IsActive:         true,
	}
}
