package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitdesk/transitdesk/internal/models"
)

func testAgent(id, email string) *models.Agent {
	now := time.Now().UTC()
	return &models.Agent{
		ID:                id,
		Name:              "Agent " + id,
		Email:             email,
		PasswordHash:      "hash",
		Status:            models.AgentStatusOffline,
		Specialization:    []string{models.TopicGeneral},
		MaxActiveSessions: 5,
		IsAccepting:       true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func testSession(id, userID, agentID string, at time.Time) *models.ChatSession {
	return &models.ChatSession{
		ID:             id,
		UserID:         userID,
		AgentID:        agentID,
		Topic:          models.TopicGeneral,
		Status:         models.SessionStatusActive,
		LastActivityAt: at,
		CreatedAt:      at,
	}
}

func TestMemoryAgentRepository(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		repo := NewMemoryAgentRepository()
		require.NoError(t, repo.Create(testAgent("a1", "a1@test")))

		got, err := repo.GetByID("a1")
		require.NoError(t, err)
		assert.Equal(t, "Agent a1", got.Name)

		got, err = repo.GetByEmail("A1@TEST")
		require.NoError(t, err)
		assert.Equal(t, "a1", got.ID)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo := NewMemoryAgentRepository()
		require.NoError(t, repo.Create(testAgent("a1", "a1@test")))
		assert.ErrorIs(t, repo.Create(testAgent("a2", "a1@test")), ErrDuplicateEmail)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := NewMemoryAgentRepository()
		_, err := repo.GetByID("ghost")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.UpdateStatus("ghost", models.AgentStatusOnline, true), ErrNotFound)
	})

	t.Run("UpdateProfile_PartialFields", func(t *testing.T) {
		repo := NewMemoryAgentRepository()
		require.NoError(t, repo.Create(testAgent("a1", "a1@test")))

		require.NoError(t, repo.UpdateProfile("a1", "New Name", "", nil))
		got, err := repo.GetByID("a1")
		require.NoError(t, err)
		assert.Equal(t, "New Name", got.Name)
		assert.Equal(t, []string{models.TopicGeneral}, got.Specialization, "nil specialization leaves set untouched")
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		repo := NewMemoryAgentRepository()
		require.NoError(t, repo.Create(testAgent("a1", "a1@test")))

		got, err := repo.GetByID("a1")
		require.NoError(t, err)
		got.Name = "mutated"

		fresh, err := repo.GetByID("a1")
		require.NoError(t, err)
		assert.Equal(t, "Agent a1", fresh.Name)
	})
}

func TestMemoryChatRepository(t *testing.T) {
	t.Run("ListOrdering", func(t *testing.T) {
		repo := NewMemoryChatRepository()
		base := time.Now().UTC()
		require.NoError(t, repo.CreateSession(testSession("s1", "U1", "a1", base)))
		require.NoError(t, repo.CreateSession(testSession("s2", "U1", "a1", base.Add(time.Minute))))

		sessions, err := repo.ListByUser("U1")
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, "s2", sessions[0].ID, "newest activity first")
	})

	t.Run("AppendBumpsActivity", func(t *testing.T) {
		repo := NewMemoryChatRepository()
		base := time.Now().UTC()
		require.NoError(t, repo.CreateSession(testSession("s1", "U1", "a1", base)))

		at := base.Add(time.Minute)
		require.NoError(t, repo.AppendMessage("s1", &models.Message{
			ID: "m1", Sender: models.SenderUser, SenderID: "U1", Content: "hi", Timestamp: at,
		}))

		got, err := repo.GetSession("s1")
		require.NoError(t, err)
		assert.Equal(t, at, got.LastActivityAt)
		require.Len(t, got.Messages, 1)
	})

	t.Run("CloseTransitionReportedOnce", func(t *testing.T) {
		repo := NewMemoryChatRepository()
		require.NoError(t, repo.CreateSession(testSession("s1", "U1", "a1", time.Now().UTC())))

		transitioned, err := repo.CloseSession("s1")
		require.NoError(t, err)
		assert.True(t, transitioned)

		transitioned, err = repo.CloseSession("s1")
		require.NoError(t, err)
		assert.False(t, transitioned)
	})

	t.Run("MarkReadSkipsOwnMessages", func(t *testing.T) {
		repo := NewMemoryChatRepository()
		base := time.Now().UTC()
		require.NoError(t, repo.CreateSession(testSession("s1", "U1", "a1", base)))
		require.NoError(t, repo.AppendMessage("s1", &models.Message{
			ID: "m1", Sender: models.SenderUser, SenderID: "U1", Content: "q", Timestamp: base,
		}))
		require.NoError(t, repo.AppendMessage("s1", &models.Message{
			ID: "m2", Sender: models.SenderAgent, SenderID: "a1", Content: "a", Timestamp: base,
		}))

		require.NoError(t, repo.MarkRead("s1", "a1"))
		got, err := repo.GetSession("s1")
		require.NoError(t, err)
		assert.True(t, got.Messages[0].IsRead)
		assert.False(t, got.Messages[1].IsRead)
	})

	t.Run("CountActiveByAgent", func(t *testing.T) {
		repo := NewMemoryChatRepository()
		base := time.Now().UTC()
		require.NoError(t, repo.CreateSession(testSession("s1", "U1", "a1", base)))
		require.NoError(t, repo.CreateSession(testSession("s2", "U2", "a1", base)))
		_, err := repo.CloseSession("s2")
		require.NoError(t, err)

		active, err := repo.CountActiveByAgent()
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, active["a1"])
	})

	t.Run("ListIdleActive", func(t *testing.T) {
		repo := NewMemoryChatRepository()
		base := time.Now().UTC()
		require.NoError(t, repo.CreateSession(testSession("old", "U1", "a1", base.Add(-time.Hour))))
		require.NoError(t, repo.CreateSession(testSession("new", "U2", "a1", base)))

		idle, err := repo.ListIdleActive(base.Add(-time.Minute))
		require.NoError(t, err)
		require.Len(t, idle, 1)
		assert.Equal(t, "old", idle[0].ID)
	})
}
