package services

import (
	"fmt"
	"math/rand"
)

// SelectNews draws count items evenly across the categories and returns them in a
// uniformly random presentation order. The per-category draw is deterministic (the
// first count/3 items in catalog order); only the combined order is shuffled.
func SelectNews(catalog Catalog, count int, rng *rand.Rand) ([]*NewsItem, error) {
	if count <= 0 || count%len(Categories) != 0 {
		return nil, fmt.Errorf("%w: count %d is not divisible by %d categories", ErrInvalidCount, count, len(Categories))
	}
	per := count / len(Categories)
	selected := make([]*NewsItem, 0, count)
	for _, cat := range Categories {
		items := catalog[cat]
		if len(items) < per {
			return nil, fmt.Errorf("%w: category %s has %d items, need %d", ErrInvalidCount, cat, len(items), per)
		}
		selected = append(selected, items[:per]...)
	}
	// Fisher-Yates via rand.Shuffle; every permutation is equally likely.
	rng.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	return selected, nil
}

// ShuffleModels returns a fresh uniform permutation of the model set. The session
// caches one permutation per item id so revisits show the same order.
func ShuffleModels(rng *rand.Rand) []ModelID {
	out := append([]ModelID(nil), ModelIDs...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
