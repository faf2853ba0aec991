package battle

import (
	"sync"

	"github.com/google/uuid"
)

// Hub fans committed battle states out to subscribers. Slow subscribers only ever see the newest
// state; older ones are dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[string]chan BattleState
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[string]chan BattleState)}
}

// Subscribe returns a channel of states for battleID. The channel is closed when the battle is
// removed or cancel is called.
func (h *Hub) Subscribe(battleID string) (<-chan BattleState, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subID := uuid.NewString()
	ch := make(chan BattleState, 1)

	if h.subs[battleID] == nil {
		h.subs[battleID] = make(map[string]chan BattleState)
	}
	h.subs[battleID][subID] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if sub, ok := h.subs[battleID][subID]; ok {
			delete(h.subs[battleID], subID)
			if len(h.subs[battleID]) == 0 {
				delete(h.subs, battleID)
			}
			close(sub)
		}
	}

	return ch, cancel
}

func (h *Hub) Publish(state BattleState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[state.ID] {
		select {
		case ch <- state:
		default:
			// drop the stale state and replace it
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

// CloseBattle closes every subscription to battleID.
func (h *Hub) CloseBattle(battleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[battleID] {
		close(ch)
	}
	delete(h.subs, battleID)
}

func (h *Hub) Subscribers(battleID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[battleID])
}
