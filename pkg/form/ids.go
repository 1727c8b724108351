package form

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDSource hands out component ids. Ids are never reused.
type IDSource interface {
	NewID() string
}

// UUIDSource generates random v4 UUIDs.
type UUIDSource struct{}

func (UUIDSource) NewID() string {
	return uuid.NewString()
}

// SequenceSource generates predictable ids ("<prefix>-1", "<prefix>-2", ...).
// Useful for previews and tests that assert on ids.
type SequenceSource struct {
	Prefix string

	mu   sync.Mutex
	next int
}

func (s *SequenceSource) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	prefix := s.Prefix
	if prefix == "" {
		prefix = "c"
	}
	return fmt.Sprintf("%s-%d", prefix, s.next)
}

// AssignIDs overwrites the id of every node in nodes, recursively, with a
// fresh id from ids. Used when a tree comes from an untrusted producer such
// as a language model.
func AssignIDs(nodes []*Component, ids IDSource) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		n.ID = ids.NewID()
		AssignIDs(n.Children, ids)
	}
}
