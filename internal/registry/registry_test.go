package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitdesk/transitdesk/internal/models"
)

func onlineAgent(id string, topics []string, max int) *models.Agent {
	return &models.Agent{
		ID:                id,
		Name:              "Agent " + id,
		Status:            models.AgentStatusOnline,
		Specialization:    topics,
		MaxActiveSessions: max,
		IsAccepting:       true,
	}
}

func TestRegistry(t *testing.T) {
	t.Run("FindEligible_MatchesTopic", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicBooking}, 3))

		_, ok := r.FindEligible(models.TopicSchedule)
		assert.False(t, ok)

		agent, ok := r.FindEligible(models.TopicBooking)
		require.True(t, ok)
		assert.Equal(t, "a1", agent.ID)
	})

	t.Run("FindEligible_GeneralHandlesEverything", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicGeneral}, 3))

		for _, topic := range []string{models.TopicSchedule, models.TopicBooking, models.TopicLocation, models.TopicGeneral} {
			_, ok := r.FindEligible(topic)
			assert.True(t, ok, "general specialist should handle %s", topic)
		}
	})

	t.Run("FindEligible_RespectsStatusAndAccepting", func(t *testing.T) {
		r := New()
		a := onlineAgent("a1", []string{models.TopicGeneral}, 3)
		a.Status = models.AgentStatusBusy
		r.Upsert(a)
		_, ok := r.FindEligible(models.TopicGeneral)
		assert.False(t, ok)

		a.Status = models.AgentStatusOnline
		a.IsAccepting = false
		r.Upsert(a)
		_, ok = r.FindEligible(models.TopicGeneral)
		assert.False(t, ok)

		a.IsAccepting = true
		r.Upsert(a)
		_, ok = r.FindEligible(models.TopicGeneral)
		assert.True(t, ok)
	})

	t.Run("Reserve_LeastLoadedFirst", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicGeneral}, 5))
		r.Upsert(onlineAgent("a2", []string{models.TopicGeneral}, 5))

		first, ok := r.Reserve(models.TopicGeneral, "s1")
		require.True(t, ok)
		assert.Equal(t, "a1", first.ID) // tie broken on smaller ID

		second, ok := r.Reserve(models.TopicGeneral, "s2")
		require.True(t, ok)
		assert.Equal(t, "a2", second.ID)
	})

	t.Run("Reserve_StopsAtCapacity", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicGeneral}, 2))

		_, ok := r.Reserve(models.TopicGeneral, "s1")
		require.True(t, ok)
		_, ok = r.Reserve(models.TopicGeneral, "s2")
		require.True(t, ok)
		_, ok = r.Reserve(models.TopicGeneral, "s3")
		assert.False(t, ok)
		assert.Equal(t, 2, r.ActiveCount("a1"))
	})

	t.Run("Reserve_ConcurrentNeverExceedsCapacity", func(t *testing.T) {
		const capacity = 3
		const attempts = 50

		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicGeneral}, capacity))

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				if _, ok := r.Reserve(models.TopicGeneral, fmt.Sprintf("s%d", n)); ok {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, capacity, succeeded)
		assert.Equal(t, capacity, r.ActiveCount("a1"))
	})

	t.Run("Release_FreesCapacity", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicGeneral}, 1))

		_, ok := r.Reserve(models.TopicGeneral, "s1")
		require.True(t, ok)
		_, ok = r.Reserve(models.TopicGeneral, "s2")
		require.False(t, ok)

		r.Release("a1", "s1")
		_, ok = r.Reserve(models.TopicGeneral, "s2")
		assert.True(t, ok)
	})

	t.Run("Release_UnknownIsNoop", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicGeneral}, 1))
		r.Release("a1", "never-reserved")
		r.Release("ghost", "s1")
		assert.Equal(t, 0, r.ActiveCount("a1"))
	})

	t.Run("SetOffline_Idempotent", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicGeneral}, 1))

		r.SetOffline("a1")
		r.SetOffline("a1")
		r.SetOffline("ghost")

		_, ok := r.FindEligible(models.TopicGeneral)
		assert.False(t, ok)
	})

	t.Run("SetStatus_UnknownAgent", func(t *testing.T) {
		r := New()
		err := r.SetStatus("ghost", models.AgentStatusOnline, true)
		assert.ErrorIs(t, err, ErrUnknownAgent)
	})

	t.Run("Available_FiltersByTopic", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicBooking}, 3))
		r.Upsert(onlineAgent("a2", []string{models.TopicSchedule}, 3))
		offline := onlineAgent("a3", []string{models.TopicBooking}, 3)
		offline.Status = models.AgentStatusOffline
		r.Upsert(offline)

		views := r.Available(models.TopicBooking)
		require.Len(t, views, 1)
		assert.Equal(t, "a1", views[0].ID)

		assert.Len(t, r.Available(""), 2)
	})

	t.Run("Upsert_KeepsAssignments", func(t *testing.T) {
		r := New()
		a := onlineAgent("a1", []string{models.TopicGeneral}, 2)
		r.Upsert(a)
		_, ok := r.Reserve(models.TopicGeneral, "s1")
		require.True(t, ok)

		r.Upsert(a)
		assert.Equal(t, 1, r.ActiveCount("a1"))
	})

	t.Run("Seed_RestoresLoad", func(t *testing.T) {
		r := New()
		r.Upsert(onlineAgent("a1", []string{models.TopicGeneral}, 2))
		r.Seed("a1", []string{"s1", "s2"})

		assert.Equal(t, 2, r.ActiveCount("a1"))
		_, ok := r.Reserve(models.TopicGeneral, "s3")
		assert.False(t, ok)
	})
}
