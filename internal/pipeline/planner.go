package pipeline

// Batch is an ordered run of manifest positions whose cumulative raw
// size stays under the planner's byte ceiling. Batches are immutable
// once planned and each is consumed by exactly one worker.
type Batch struct {
	Index int
	Files []int // positions into Request.Files, in manifest order
	Bytes int64
}

// PlanBatches splits the manifest into batches by greedy accumulation
// in manifest order. A file may close a batch but never splits across
// two; a single file larger than the ceiling forms its own batch.
// Order within a batch follows the manifest, but batches themselves
// carry no cross-batch ordering guarantee once dispatched.
func PlanBatches(sizes []int64, limit int64) ([]Batch, error) {
	if len(sizes) == 0 {
		return nil, &ValidationError{Field: "files", Reason: "manifest is empty"}
	}
	if limit <= 0 {
		return nil, &ValidationError{Field: "batchByteLimit", Reason: "must be positive"}
	}

	var batches []Batch
	cur := Batch{Index: 0}
	for i, size := range sizes {
		if len(cur.Files) > 0 && cur.Bytes+size > limit {
			batches = append(batches, cur)
			cur = Batch{Index: len(batches)}
		}
		cur.Files = append(cur.Files, i)
		cur.Bytes += size
	}
	batches = append(batches, cur)
	return batches, nil
}
