package planner

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"

	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/model"
)

// order sorts chunks in place per ordering. Random uses seed if non-zero,
// otherwise an FNV hash of inputPath, so repeated runs over the same input
// get a stable (but still shuffled) dispatch order.
func order(chunks []model.Chunk, ordering config.ChunkOrdering, seed int64, inputPath string) {
	switch ordering {
	case config.OrderLongestFirst:
		sort.SliceStable(chunks, func(i, j int) bool {
			return chunks[i].Frames() > chunks[j].Frames()
		})
	case config.OrderShortestFirst:
		sort.SliceStable(chunks, func(i, j int) bool {
			return chunks[i].Frames() < chunks[j].Frames()
		})
	case config.OrderSequential:
		// already in scene order
	case config.OrderRandom:
		if seed == 0 {
			seed = int64(seedFromPath(inputPath))
		}
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
		rng.Shuffle(len(chunks), func(i, j int) {
			chunks[i], chunks[j] = chunks[j], chunks[i]
		})
	}
}

func seedFromPath(path string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return h.Sum64()
}
