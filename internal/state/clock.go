package state

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDSource issues stroke ids of the form "<site>-<n>". The site is a random
// UUID, so ids from different clients never collide.
type IDSource struct {
	site string
	seq  atomic.Uint64
}

func NewIDSource() *IDSource {
	return &IDSource{site: uuid.NewString()}
}

func (s *IDSource) Site() string { return s.site }

func (s *IDSource) Next() string {
	return fmt.Sprintf("%s-%d", s.site, s.seq.Add(1))
}

// NewParticipantID returns the identity the transport assigns to a connection.
func NewParticipantID() string {
	return uuid.NewString()
}
