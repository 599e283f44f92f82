package coordinator

import (
	"fmt"
	"sync"

	"github.com/danmuck/audacd/internal/device"
)

// TriggerAction selects what firing a contact should do.
type TriggerAction string

const (
	ActionStart TriggerAction = "start"
	ActionStop  TriggerAction = "stop"
)

// Trigger is the locally-held configuration for one slot's contact trigger.
// It is never read from the device; the device only sees it when the trigger
// is executed.
type Trigger struct {
	Action     TriggerAction `json:"action"`
	Contact    int           `json:"contact"`
	LastResult string        `json:"last_result,omitempty"`
}

// TriggerStore holds per-slot trigger configuration. Entries are created
// lazily on first access and live for the owning coordinator's lifetime.
type TriggerStore struct {
	mu    sync.Mutex
	slots map[int]Trigger
}

func NewTriggerStore() *TriggerStore {
	return &TriggerStore{slots: make(map[int]Trigger)}
}

// Get returns the slot's trigger, creating the default (start, contact 1)
// on first access.
func (s *TriggerStore) Get(slot int) Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(slot)
}

func (s *TriggerStore) get(slot int) Trigger {
	t, ok := s.slots[slot]
	if !ok {
		t = Trigger{Action: ActionStart, Contact: 1}
		s.slots[slot] = t
	}
	return t
}

// SetAction updates the pending action for a slot.
func (s *TriggerStore) SetAction(slot int, action TriggerAction) error {
	if action != ActionStart && action != ActionStop {
		return fmt.Errorf("%w: trigger action %q", device.ErrInvalidArgument, action)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.get(slot)
	t.Action = action
	s.slots[slot] = t
	return nil
}

// SetContact updates the contact number for a slot, clamped to the valid
// contact range.
func (s *TriggerStore) SetContact(slot, contact int) {
	if contact < device.TriggerContactMin {
		contact = device.TriggerContactMin
	}
	if contact > device.TriggerContactMax {
		contact = device.TriggerContactMax
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.get(slot)
	t.Contact = contact
	s.slots[slot] = t
}

// SetResult stores the description returned by the last execution.
func (s *TriggerStore) SetResult(slot int, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.get(slot)
	t.LastResult = result
	s.slots[slot] = t
}
