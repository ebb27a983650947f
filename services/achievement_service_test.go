package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freshiesAPI/internal/achievement"
	"freshiesAPI/internal/activity"
	"freshiesAPI/internal/notification"
)

// Friday.
var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newEngine(store *fakeStore, notifier Notifier) *AchievementService {
	log := zap.NewNop().Sugar()
	pts := NewPointsService(store, notifier, log)
	svc := NewAchievementService(store, NewCachedCatalog(store, time.Minute), pts, notifier, time.UTC, log)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func codes(list []*achievement.Achievement) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Code)
	}
	return out
}

func TestEvaluatorsCoverEveryRequirementType(t *testing.T) {
	for _, rt := range achievement.RequirementTypes {
		_, ok := evaluators[rt]
		assert.True(t, ok, "no evaluator for %s", rt)
	}
	assert.Len(t, evaluators, len(achievement.RequirementTypes))
}

func TestEvaluateAndUnlock_EndToEnd(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	streak3 := newAchievement("streak_3", achievement.TierBronze, achievement.RequirementStreakDays, 3, 50)
	streak3.Name = "On a Roll"
	store.catalog = []*achievement.Achievement{streak3}
	store.snapshots[child.ID].CurrentStreak = 3

	notifier := &recordingNotifier{}
	svc := newEngine(store, notifier)

	unlocked := svc.EvaluateAndUnlock(context.Background(), child.ID)

	require.Len(t, unlocked, 1)
	assert.Equal(t, streak3.ID, unlocked[0].ID)
	assert.Equal(t, 1, store.unlockCount(child.ID))
	assert.Equal(t, []int{50}, store.awardCalls)

	unlocks, err := store.ListUnlocks(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, unlocks[0].Progress)
	assert.Equal(t, fixedNow, unlocks[0].UnlockedAt)

	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notification.TypeAchievement, msgs[0].Type)
	assert.Contains(t, msgs[0].Title, "On a Roll")
	assert.Contains(t, msgs[0].Body, "50")
}

func TestEvaluateAndUnlock_Idempotent(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("first_steps", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 10),
		newAchievement("streak_3", achievement.TierBronze, achievement.RequirementStreakDays, 3, 50),
	}
	store.snapshots[child.ID] = &activity.Snapshot{CurrentStreak: 3, TotalCompletions: 5}

	notifier := &recordingNotifier{}
	svc := newEngine(store, notifier)

	first := svc.EvaluateAndUnlock(context.Background(), child.ID)
	second := svc.EvaluateAndUnlock(context.Background(), child.ID)

	assert.Len(t, first, 2)
	assert.Empty(t, second)
	assert.Len(t, store.awardCalls, 2)
	assert.Len(t, notifier.messages(), 2)
}

func TestEvaluateAndUnlock_StreakThreshold(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("streak_7", achievement.TierSilver, achievement.RequirementStreakDays, 7, 100),
	}
	svc := newEngine(store, &recordingNotifier{})

	store.snapshots[child.ID].CurrentStreak = 6
	assert.Empty(t, svc.EvaluateAndUnlock(context.Background(), child.ID))

	store.snapshots[child.ID].CurrentStreak = 7
	assert.Len(t, svc.EvaluateAndUnlock(context.Background(), child.ID), 1)
	assert.Empty(t, svc.EvaluateAndUnlock(context.Background(), child.ID))
	assert.Equal(t, 1, store.unlockCount(child.ID))
}

func TestEvaluateAndUnlock_PerfectWeek(t *testing.T) {
	tests := []struct {
		name    string
		daysAgo []int
		want    bool
	}{
		{"seven distinct days", []int{0, 1, 2, 3, 4, 5, 6}, true},
		{"six distinct days with repeats", []int{0, 0, 1, 1, 2, 3, 4, 5}, false},
		{"oldest day outside window", []int{0, 1, 2, 3, 4, 5, 8}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			_, child := store.addParentWithChild("user_1")
			store.catalog = []*achievement.Achievement{
				newAchievement("perfect_week", achievement.TierSilver, achievement.RequirementPerfectWeek, 7, 150),
			}
			for _, d := range tt.daysAgo {
				store.addCompletion(child.ID, activity.SegmentMorning, fixedNow.AddDate(0, 0, -d))
			}
			got := newEngine(store, &recordingNotifier{}).EvaluateAndUnlock(context.Background(), child.ID)
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestEvaluateAndUnlock_WeekendWarrior(t *testing.T) {
	saturday := time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC)

	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("weekend_warrior_2", achievement.TierSilver, achievement.RequirementWeekendWarrior, 2, 120),
	}
	store.addCompletion(child.ID, activity.SegmentMorning, saturday)
	store.addCompletion(child.ID, activity.SegmentEvening, saturday.Add(10*time.Hour))
	svc := newEngine(store, &recordingNotifier{})

	assert.Empty(t, svc.EvaluateAndUnlock(context.Background(), child.ID), "one saturday is one weekend week")

	store.addCompletion(child.ID, activity.SegmentMorning, saturday.AddDate(0, 0, 7))
	assert.Len(t, svc.EvaluateAndUnlock(context.Background(), child.ID), 1)
}

func TestEvaluateAndUnlock_EarlyBirdAndNightOwl(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("early_bird_2", achievement.TierBronze, achievement.RequirementEarlyBird, 2, 40),
		newAchievement("night_owl_2", achievement.TierBronze, achievement.RequirementNightOwl, 2, 40),
	}
	day := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	store.addCompletion(child.ID, activity.SegmentMorning, day.Add(7*time.Hour+59*time.Minute))
	store.addCompletion(child.ID, activity.SegmentMorning, day.AddDate(0, 0, 1).Add(8*time.Hour))
	// Evening completions count regardless of the hour.
	store.addCompletion(child.ID, activity.SegmentEvening, day.Add(17*time.Hour+5*time.Minute))
	store.addCompletion(child.ID, activity.SegmentEvening, day.AddDate(0, 0, 1).Add(18*time.Hour))

	svc := newEngine(store, &recordingNotifier{})
	assert.Equal(t, []string{"night_owl_2"}, codes(svc.EvaluateAndUnlock(context.Background(), child.ID)))

	store.addCompletion(child.ID, activity.SegmentMorning, day.AddDate(0, 0, 2).Add(6*time.Hour))
	assert.Equal(t, []string{"early_bird_2"}, codes(svc.EvaluateAndUnlock(context.Background(), child.ID)))
}

func TestEvaluateAndUnlock_CatalogOrder(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("completions_25", achievement.TierSilver, achievement.RequirementTotalCompletions, 25, 100),
		newAchievement("streak_3", achievement.TierBronze, achievement.RequirementStreakDays, 3, 50),
		newAchievement("first_steps", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 10),
	}
	store.snapshots[child.ID] = &activity.Snapshot{CurrentStreak: 4, TotalCompletions: 30}
	notifier := &recordingNotifier{}

	got := newEngine(store, notifier).EvaluateAndUnlock(context.Background(), child.ID)

	assert.Equal(t, []string{"first_steps", "streak_3", "completions_25"}, codes(got))
	msgs := notifier.messages()
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[0].Title, "first_steps")
	assert.Contains(t, msgs[1].Title, "streak_3")
	// 10 + 50 + 100 crosses the first level at 100; the level-up goes out
	// before the celebration of the unlock that caused it.
	assert.Equal(t, notification.TypeLevelUp, msgs[2].Type)
	assert.Contains(t, msgs[3].Title, "completions_25")
}

func TestEvaluateAndUnlock_AbsorbsReadErrors(t *testing.T) {
	t.Run("missing child", func(t *testing.T) {
		store := newFakeStore()
		store.catalog = []*achievement.Achievement{
			newAchievement("first_steps", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 10),
		}
		got := newEngine(store, &recordingNotifier{}).EvaluateAndUnlock(context.Background(), uuid.New())
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("snapshot error", func(t *testing.T) {
		store := newFakeStore()
		_, child := store.addParentWithChild("user_1")
		store.catalog = []*achievement.Achievement{
			newAchievement("first_steps", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 10),
		}
		store.snapshotErr = errStoreDown
		assert.Empty(t, newEngine(store, &recordingNotifier{}).EvaluateAndUnlock(context.Background(), child.ID))
		assert.Zero(t, store.catalogHits)
	})

	t.Run("catalog error", func(t *testing.T) {
		store := newFakeStore()
		_, child := store.addParentWithChild("user_1")
		store.snapshots[child.ID].TotalCompletions = 3
		store.catalogErr = errStoreDown
		assert.Empty(t, newEngine(store, &recordingNotifier{}).EvaluateAndUnlock(context.Background(), child.ID))
	})

	t.Run("evaluator error skips only that entry", func(t *testing.T) {
		store := newFakeStore()
		_, child := store.addParentWithChild("user_1")
		store.catalog = []*achievement.Achievement{
			newAchievement("perfect_week", achievement.TierBronze, achievement.RequirementPerfectWeek, 7, 150),
			newAchievement("streak_3", achievement.TierSilver, achievement.RequirementStreakDays, 3, 50),
		}
		store.snapshots[child.ID].CurrentStreak = 3
		store.datesErr = errStoreDown

		got := newEngine(store, &recordingNotifier{}).EvaluateAndUnlock(context.Background(), child.ID)
		assert.Equal(t, []string{"streak_3"}, codes(got))
	})

	t.Run("unknown requirement type", func(t *testing.T) {
		store := newFakeStore()
		_, child := store.addParentWithChild("user_1")
		store.catalog = []*achievement.Achievement{
			newAchievement("mystery", achievement.TierBronze, achievement.RequirementType("moon_phase"), 1, 10),
			newAchievement("first_steps", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 10),
		}
		store.snapshots[child.ID].TotalCompletions = 1

		got := newEngine(store, &recordingNotifier{}).EvaluateAndUnlock(context.Background(), child.ID)
		assert.Equal(t, []string{"first_steps"}, codes(got))
	})
}

func TestEvaluateAndUnlock_InsertErrorStopsPass(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("first_steps", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 10),
		newAchievement("streak_3", achievement.TierBronze, achievement.RequirementStreakDays, 3, 50),
	}
	store.snapshots[child.ID] = &activity.Snapshot{CurrentStreak: 3, TotalCompletions: 3}
	store.insertErr = errStoreDown
	notifier := &recordingNotifier{}

	assert.Empty(t, newEngine(store, notifier).EvaluateAndUnlock(context.Background(), child.ID))
	assert.Empty(t, store.awardCalls)
	assert.Empty(t, notifier.messages())
}

func TestEvaluateAndUnlock_SideEffectFailuresKeepUnlock(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("first_steps", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 10),
	}
	store.snapshots[child.ID].TotalCompletions = 1

	notifier := &recordingNotifier{err: errors.New("queue full")}
	awarder := &failingAwarder{}
	log := zap.NewNop().Sugar()
	svc := NewAchievementService(store, NewCachedCatalog(store, time.Minute), awarder, notifier, time.UTC, log)

	got := svc.EvaluateAndUnlock(context.Background(), child.ID)

	assert.Len(t, got, 1)
	assert.Equal(t, 1, awarder.calls)
	assert.Equal(t, 1, store.unlockCount(child.ID))
	assert.Len(t, notifier.messages(), 1)
}

func TestEvaluateAndUnlock_ZeroPointsSkipsAward(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("hello", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 0),
	}
	store.snapshots[child.ID].TotalCompletions = 1
	notifier := &recordingNotifier{}

	got := newEngine(store, notifier).EvaluateAndUnlock(context.Background(), child.ID)

	assert.Len(t, got, 1)
	assert.Empty(t, store.awardCalls)
	assert.Len(t, notifier.messages(), 1)
}

func TestEvaluateAndUnlock_ConcurrentPassesUnlockOnce(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("streak_3", achievement.TierBronze, achievement.RequirementStreakDays, 3, 50),
	}
	store.snapshots[child.ID].CurrentStreak = 3
	svc := newEngine(store, &recordingNotifier{})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := len(svc.EvaluateAndUnlock(context.Background(), child.ID))
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total)
	assert.Equal(t, []int{50}, store.awardCalls)
}

func TestEvaluateAndUnlock_CachesCatalog(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	store.catalog = []*achievement.Achievement{
		newAchievement("streak_3", achievement.TierBronze, achievement.RequirementStreakDays, 3, 50),
	}
	svc := newEngine(store, &recordingNotifier{})

	for i := 0; i < 3; i++ {
		svc.EvaluateAndUnlock(context.Background(), child.ID)
	}
	assert.Equal(t, 1, store.catalogHits)

	svc.catalog.Purge()
	svc.EvaluateAndUnlock(context.Background(), child.ID)
	assert.Equal(t, 2, store.catalogHits)
}

func TestGetAchievementsWithProgress(t *testing.T) {
	store := newFakeStore()
	_, child := store.addParentWithChild("user_1")
	total50 := newAchievement("completions_50", achievement.TierGold, achievement.RequirementTotalCompletions, 50, 200)
	streak7 := newAchievement("streak_7", achievement.TierSilver, achievement.RequirementStreakDays, 7, 100)
	week := newAchievement("perfect_week", achievement.TierSilver, achievement.RequirementPerfectWeek, 7, 150)
	first := newAchievement("first_steps", achievement.TierBronze, achievement.RequirementTotalCompletions, 1, 10)
	store.catalog = []*achievement.Achievement{total50, streak7, week, first}
	store.snapshots[child.ID] = &activity.Snapshot{CurrentStreak: 4, TotalCompletions: 73}
	_, err := store.InsertUnlock(context.Background(), &achievement.Unlock{ChildID: child.ID, AchievementID: first.ID, Progress: 1, UnlockedAt: fixedNow})
	require.NoError(t, err)

	svc := newEngine(store, &recordingNotifier{})
	list, err := svc.GetAchievementsWithProgress(context.Background(), child.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)

	byCode := map[string]*achievement.WithProgress{}
	for _, wp := range list {
		byCode[wp.Code] = wp
	}

	assert.Equal(t, 50, byCode["completions_50"].Progress, "capped at the requirement")
	assert.False(t, byCode["completions_50"].IsUnlocked)
	assert.Equal(t, 4, byCode["streak_7"].Progress)
	assert.Equal(t, 0, byCode["perfect_week"].Progress)
	assert.True(t, byCode["first_steps"].IsUnlocked)
	assert.Equal(t, 1, byCode["first_steps"].Progress)
	require.NotNil(t, byCode["first_steps"].UnlockedAt)
	assert.True(t, byCode["first_steps"].UnlockedAt.Equal(fixedNow))

	// Listing never unlocks.
	assert.Equal(t, 1, store.unlockCount(child.ID))
}

func TestGetAchievementsWithProgress_MissingSnapshot(t *testing.T) {
	store := newFakeStore()
	store.catalog = []*achievement.Achievement{
		newAchievement("streak_7", achievement.TierSilver, achievement.RequirementStreakDays, 7, 100),
	}
	list, err := newEngine(store, &recordingNotifier{}).GetAchievementsWithProgress(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].Progress)

	store.catalogErr = errStoreDown
	svc := newEngine(store, &recordingNotifier{})
	_, err = svc.GetAchievementsWithProgress(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "catalog"))
}
