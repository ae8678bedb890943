// Package registry tracks live agent availability and enforces the
// per-agent session capacity bound. It is the single point of
// coordination for routing: eligibility check and load increment happen
// under one lock, so two concurrent requests can never push an agent past
// its capacity.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/transitdesk/transitdesk/internal/models"
)

// ErrUnknownAgent is returned when an operation names an agent the
// registry has never seen.
var ErrUnknownAgent = errors.New("unknown agent")

type entry struct {
	agent  models.Agent
	active map[string]struct{} // session IDs currently assigned
}

// Registry holds the in-memory availability state for every agent.
type Registry struct {
	mu     sync.Mutex
	agents map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]*entry)}
}

// Upsert installs or refreshes an agent's record. Existing session
// assignments are kept.
func (r *Registry) Upsert(agent *models.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.agents[agent.ID]
	if !ok {
		e = &entry{active: make(map[string]struct{})}
		r.agents[agent.ID] = e
	}
	e.agent = *agent
	e.agent.Specialization = append([]string(nil), agent.Specialization...)
}

// Seed records pre-existing active sessions for an agent, used at startup
// to rebuild load counters from the durable store.
func (r *Registry) Seed(agentID string, sessionIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.agents[agentID]
	if !ok {
		return
	}
	for _, id := range sessionIDs {
		e.active[id] = struct{}{}
	}
}

// SetStatus updates an agent's availability. Existing sessions are not
// affected.
func (r *Registry) SetStatus(agentID, status string, isAccepting bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.agents[agentID]
	if !ok {
		return ErrUnknownAgent
	}
	e.agent.Status = status
	e.agent.IsAccepting = isAccepting
	return nil
}

// SetOffline marks an agent offline. Idempotent: repeated logout is not
// an error, and an unknown agent is ignored.
func (r *Registry) SetOffline(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.agents[agentID]; ok {
		e.agent.Status = models.AgentStatusOffline
	}
}

func eligible(e *entry, topic string) bool {
	return e.agent.Status == models.AgentStatusOnline &&
		e.agent.IsAccepting &&
		e.agent.HandlesTopic(topic) &&
		len(e.active) < e.agent.MaxActiveSessions
}

// FindEligible returns a snapshot of one eligible agent for the topic, or
// ok=false when none qualifies. Selection is least-loaded first, smallest
// ID as tie-break. The result is advisory; use Reserve to actually claim
// capacity.
func (r *Registry) FindEligible(topic string) (models.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.pickLocked(topic)
	if e == nil {
		return models.Agent{}, false
	}
	return e.agent, true
}

// Reserve atomically selects an eligible agent for the topic and records
// the session against it. Returns ok=false when no agent qualifies.
func (r *Registry) Reserve(topic, sessionID string) (models.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.pickLocked(topic)
	if e == nil {
		return models.Agent{}, false
	}
	e.active[sessionID] = struct{}{}
	return e.agent, true
}

// Release removes a session assignment. Safe to call for assignments that
// were already released or never recorded.
func (r *Registry) Release(agentID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.agents[agentID]; ok {
		delete(e.active, sessionID)
	}
}

// ActiveCount returns the number of sessions currently assigned to an
// agent.
func (r *Registry) ActiveCount(agentID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.agents[agentID]; ok {
		return len(e.active)
	}
	return 0
}

// Available returns public views of every online, accepting agent,
// optionally filtered to those handling the given topic. Capacity is not
// considered; this feeds the "pick an agent" listing, not routing.
func (r *Registry) Available(topic string) []models.AgentView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.AgentView{}
	for _, e := range r.agents {
		if e.agent.Status != models.AgentStatusOnline || !e.agent.IsAccepting {
			continue
		}
		if topic != "" && !e.agent.HandlesTopic(topic) {
			continue
		}
		out = append(out, e.agent.View())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// pickLocked selects the least-loaded eligible agent, breaking ties on the
// smaller ID so routing is deterministic. Caller holds r.mu.
func (r *Registry) pickLocked(topic string) *entry {
	var best *entry
	for _, e := range r.agents {
		if !eligible(e, topic) {
			continue
		}
		if best == nil ||
			len(e.active) < len(best.active) ||
			(len(e.active) == len(best.active) && e.agent.ID < best.agent.ID) {
			best = e
		}
	}
	return best
}
