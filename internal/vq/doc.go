// Package vq implements a two dimensional vector quantizer.
//
// VQ2D partitions a set of 2D points into k clusters with Lloyd's algorithm:
// every point is assigned to its nearest center by squared Euclidean
// distance, then every center moves to the mean of its points. The loop ends
// after a fixed number of steps or as soon as the mean quantization error
// drops to a threshold.
//
// # Initialization
//
// Centers are drawn from the data itself, either uniformly at random with
// replacement (InitRandomFromData, the default) or as the first k points
// (InitSequentialFromData). Use WithSeed for reproducible random runs.
//
// # Dead Centers
//
// A center that attracts no point in an iteration is moved to the sentinel
// (-1, -1). It is not re-seeded and only comes back to life if a later
// assignment happens to pick it.
//
// # Shared State
//
// The point matrix shares the caller's slice unless deepCopy is requested,
// and Run returns the quantizer's own center slice. Both are mutated by later
// calls; copy them if they must outlive the next Run or Step.
//
// Example:
//
//	q, err := vq.New(points, 2, false, vq.WithSeed(1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	centers, qe, err := q.Run(3, 50, 0.5)
package vq
