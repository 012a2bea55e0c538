package rotation

import (
	"testing"

	"legalsearch_backend/internal/directory"

	"github.com/google/uuid"
)

func TestShufflePoolIsPermutation(t *testing.T) {
	pool := solicitorPool(uuid.New(), 10)

	ids := shufflePool(pool)
	if len(ids) != len(pool) {
		t.Fatalf("got %d ids, want %d", len(ids), len(pool))
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	for _, s := range pool {
		if !seen[s.ID] {
			t.Fatalf("missing id %s", s.ID)
		}
	}
}

func TestShufflePoolLeavesInputUntouched(t *testing.T) {
	pool := solicitorPool(uuid.New(), 5)
	original := make([]directory.Solicitor, len(pool))
	copy(original, pool)

	_ = shufflePool(pool)

	for i := range pool {
		if pool[i].ID != original[i].ID {
			t.Fatalf("input mutated at index %d", i)
		}
	}
}

func TestShufflePoolEmpty(t *testing.T) {
	if ids := shufflePool(nil); len(ids) != 0 {
		t.Fatalf("got %d ids, want 0", len(ids))
	}
}
