package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ResumeState is what survives a dropped connection: the identity of the
// stream and the frames that were queued but never delivered, oldest first.
type ResumeState struct {
	Token        string
	ConnectionID uuid.UUID
	Channel      string
	SessionID    uuid.UUID
	Pending      [][]byte
	DroppedAt    time.Time
}

// ResumptionRepository keeps resume state for the configured window. State
// not claimed in time expires on its own and the session must restart.
type ResumptionRepository struct {
	cache *cache.Cache
}

func NewResumptionRepository(window time.Duration) *ResumptionRepository {
	// Purge at half the window so expired state does not linger long.
	purge := window / 2
	if purge < time.Second {
		purge = time.Second
	}
	return &ResumptionRepository{
		cache: cache.New(window, purge),
	}
}

func (r *ResumptionRepository) Save(state *ResumeState) {
	r.cache.Set(state.Token, state, cache.DefaultExpiration)
}

// Claim returns the state for a token and removes it, so a token can only
// resume one connection.
func (r *ResumptionRepository) Claim(token string) (*ResumeState, bool) {
	x, found := r.cache.Get(token)
	if !found {
		return nil, false
	}
	r.cache.Delete(token)
	return x.(*ResumeState), true
}

func (r *ResumptionRepository) Delete(token string) {
	r.cache.Delete(token)
}
