package rotation

import (
	"math/rand/v2"

	"legalsearch_backend/internal/directory"

	"github.com/google/uuid"
)

// shufflePool returns the solicitor ids in a fresh uniform permutation.
// Candidate order is randomized per batch so request load spreads evenly
// across the eligible pool instead of always favoring directory order.
// The math/rand/v2 top-level source is safe for concurrent batches.
func shufflePool(pool []directory.Solicitor) []uuid.UUID {
	ids := make([]uuid.UUID, len(pool))
	for i, s := range pool {
		ids[i] = s.ID
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}
