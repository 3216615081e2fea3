package conversation

import (
	"sync"

	"chatroom/internal/models"
)

type entry struct {
	msg     models.Message
	readers map[string]struct{}
}

func newEntry(m models.Message) *entry {
	e := &entry{msg: m, readers: make(map[string]struct{}, len(m.Readers))}
	e.msg.Readers = make([]string, 0, len(m.Readers))
	for _, r := range m.Readers {
		e.addReader(r)
	}
	return e
}

func (e *entry) addReader(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := e.readers[id]; ok {
		return false
	}
	e.readers[id] = struct{}{}
	e.msg.Readers = append(e.msg.Readers, id)
	return true
}

// Store is the ordered, deduplicated message list of the open conversation.
// Messages keep the order in which they entered the store.
type Store struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*entry
}

func NewStore() *Store {
	return &Store{byID: make(map[string]*entry)}
}

// ReplaceAll drops the current contents and loads msgs in order. Later copies
// of an id already seen in msgs are skipped, as are messages without an id.
func (s *Store) ReplaceAll(msgs []models.Message) {
	order := make([]string, 0, len(msgs))
	byID := make(map[string]*entry, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		if _, ok := byID[m.ID]; ok {
			continue
		}
		byID[m.ID] = newEntry(m)
		order = append(order, m.ID)
	}

	s.mu.Lock()
	s.order = order
	s.byID = byID
	s.mu.Unlock()
}

// Append adds m at the end. It returns false, leaving the store untouched, when
// m has no id or its id is already present.
func (s *Store) Append(m models.Message) bool {
	if m.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[m.ID]; ok {
		return false
	}
	s.byID[m.ID] = newEntry(m)
	s.order = append(s.order, m.ID)
	return true
}

// MarkRead adds readerID to the readers of every message not sent by readerID.
// It returns the number of messages that changed.
func (s *Store) MarkRead(readerID string) int {
	if readerID == "" {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, id := range s.order {
		e := s.byID[id]
		if e.msg.Sender == readerID {
			continue
		}
		if e.addReader(readerID) {
			changed++
		}
	}
	return changed
}

// MarkFailed flags a message whose transmission failed.
func (s *Store) MarkFailed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok || e.msg.Failed {
		return false
	}
	e.msg.Failed = true
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns a copy of the messages in store order.
func (s *Store) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, 0, len(s.order))
	for _, id := range s.order {
		m := s.byID[id].msg
		m.Readers = append([]string(nil), m.Readers...)
		out = append(out, m)
	}
	return out
}

func (s *Store) Reset() {
	s.ReplaceAll(nil)
}
