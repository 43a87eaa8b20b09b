package tickets

import (
	"sync"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// FlowKind is the kind of prompt a flow is waiting on.
type FlowKind string

const (
	// FlowIntake waits for the questionnaire of a new ticket.
	FlowIntake FlowKind = "intake"

	// FlowCloseReason waits for a close reason.
	FlowCloseReason FlowKind = "close_reason"
)

// Flow is a pending prompt. Nothing happens until it is completed, and an expired flow is
// dropped without side effects.
type Flow struct {
	ID      string
	Kind    FlowKind
	GuildID string
	UserID  string

	// Panel is set for intake flows.
	Panel string

	// ContainerID and Delay are set for close reason flows.
	ContainerID string
	Delay       time.Duration

	Expires time.Time
}

// Flows tracks pending prompts in memory.
type Flows struct {
	mu    sync.Mutex
	clock clockwork.Clock
	ttl   time.Duration
	flows map[string]*Flow
}

// Begin registers a flow and returns it with its ID and expiry set.
func (f *Flows) Begin(flow Flow) *Flow {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pruneLocked()
	flow.ID = uuid.NewString()
	flow.Expires = f.clock.Now().Add(f.ttl)
	f.flows[flow.ID] = &flow
	return &flow
}

// Complete removes a flow and returns it. The submitting user must be the user the flow was
// started for.
func (f *Flows) Complete(id, userID string) (*Flow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	flow, ok := f.flows[id]
	if !ok {
		return nil, invalid("%s", messages.ErrFlowExpired)
	}
	if flow.UserID != userID {
		return nil, denied("This prompt belongs to someone else.")
	}
	delete(f.flows, id)

	if !f.clock.Now().Before(flow.Expires) {
		return nil, invalid("%s", messages.ErrFlowExpired)
	}
	return flow, nil
}

// Len returns how many flows are pending, expired ones included until the next prune.
func (f *Flows) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flows)
}

func (f *Flows) pruneLocked() {
	now := f.clock.Now()
	for id, flow := range f.flows {
		if !now.Before(flow.Expires) {
			delete(f.flows, id)
		}
	}
}
