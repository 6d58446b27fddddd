package vq

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/region-tools-mcp/internal/region"
)

var (
	// ErrDimension is returned by New for any dimension other than 2.
	ErrDimension = errors.New("vq: only 2-dimensional data is supported")
	// ErrDataLength is returned by New when the data length is not a multiple of the dimension.
	ErrDataLength = errors.New("vq: data length is not a multiple of the dimension")
	// ErrEmptyData is returned by Run when there are no points.
	ErrEmptyData = errors.New("vq: empty data set")
	// ErrInvalidK is returned by Run and Train when k is not in [1, n].
	//
	// The cluster count precondition is stated elsewhere as k < n. k == n is
	// accepted here: every point seeds its own center and the error is 0.
	// Only k > n, which would need a center without a seed point, is
	// rejected.
	ErrInvalidK = errors.New("vq: cluster count out of range")
	// ErrInvalidSteps is returned by Run when maxSteps < 1 and by Train when
	// epochs < 1.
	ErrInvalidSteps = errors.New("vq: maxSteps must be at least 1")
	// ErrInvalidRate is returned by Train when the learn rate is not in (0, 1].
	ErrInvalidRate = errors.New("vq: learn rate out of range")
	// ErrNotInitialized is returned by Step before any centers exist.
	ErrNotInitialized = errors.New("vq: centers not initialized")
)

// DeadCenter is the position of a center that attracted no points.
var DeadCenter = Point{X: -1, Y: -1}

// Point is a cluster center.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InitMode selects how Run seeds its centers.
type InitMode int

const (
	// InitRandomFromData draws k data points uniformly with replacement.
	InitRandomFromData InitMode = iota
	// InitSequentialFromData uses the first k data points.
	InitSequentialFromData
)

func (m InitMode) String() string {
	switch m {
	case InitRandomFromData:
		return "random"
	case InitSequentialFromData:
		return "sequential"
	default:
		return fmt.Sprintf("InitMode(%d)", int(m))
	}
}

// ParseInitMode converts "random" or "sequential" to an InitMode.
func ParseInitMode(s string) (InitMode, error) {
	switch s {
	case "", "random":
		return InitRandomFromData, nil
	case "sequential":
		return InitSequentialFromData, nil
	default:
		return 0, fmt.Errorf("vq: unknown init mode %q", s)
	}
}

// Option configures a VQ2D.
type Option func(*VQ2D)

// WithSeed makes random initialization reproducible.
func WithSeed(seed int64) Option {
	return func(q *VQ2D) {
		q.rng = rand.New(rand.NewSource(seed))
	}
}

// WithInit selects the center initialization mode.
func WithInit(mode InitMode) Option {
	return func(q *VQ2D) {
		q.init = mode
	}
}

// VQ2D clusters 2D points. It is not safe for concurrent use.
type VQ2D struct {
	data    *mat.Dense
	n       int
	centers []Point
	init    InitMode
	rng     *rand.Rand

	// per-iteration accumulators, reused across steps
	sumX, sumY []float64
	count      []int
}

// New creates a quantizer over interleaved (x, y) pairs.
//
// Parameters:
//   - data: Interleaved coordinates x0, y0, x1, y1, ...
//   - dim: Must be 2.
//   - deepCopy: If false the quantizer reads data in place, so later changes
//     by the caller are visible to Run. If true data is copied.
//   - opts: Optional settings (WithSeed, WithInit).
//
// Returns:
//   - A quantizer with no centers, or ErrDimension / ErrDataLength.
func New(data []float64, dim int, deepCopy bool, opts ...Option) (*VQ2D, error) {
	if dim != 2 {
		return nil, fmt.Errorf("%w: got %d", ErrDimension, dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("%w: %d values", ErrDataLength, len(data))
	}

	q := &VQ2D{n: len(data) / dim}
	if q.n > 0 {
		if deepCopy {
			data = append([]float64(nil), data...)
		}
		q.data = mat.NewDense(q.n, dim, data)
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.rng == nil {
		q.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return q, nil
}

// Len returns the number of data points.
func (q *VQ2D) Len() int {
	return q.n
}

// Centers returns the current centers. The slice is shared with the
// quantizer.
func (q *VQ2D) Centers() []Point {
	return q.centers
}

// Run seeds k centers and runs up to maxSteps Lloyd iterations.
//
// Each iteration assigns every point to its nearest center, ties going to
// the lowest center index, and sums the squared distances. If the mean
// error is at most minMeanQE the loop stops before the centers are updated.
// Otherwise every center moves to the mean of its points; centers without
// points become DeadCenter.
//
// Returns:
//   - The centers (shared with the quantizer, see Centers).
//   - The mean quantization error of the last iteration.
//   - ErrEmptyData, ErrInvalidK or ErrInvalidSteps for bad input; the
//     current centers are left unchanged in that case.
func (q *VQ2D) Run(k, maxSteps int, minMeanQE float64) ([]Point, float64, error) {
	if err := q.check(k, maxSteps); err != nil {
		return q.centers, 0, err
	}

	q.seed(k)
	if cap(q.count) < k {
		q.sumX = make([]float64, k)
		q.sumY = make([]float64, k)
		q.count = make([]int, k)
	}
	q.sumX, q.sumY, q.count = q.sumX[:k], q.sumY[:k], q.count[:k]

	var qe float64
	for step := 0; step < maxSteps; step++ {
		for c := 0; c < k; c++ {
			q.sumX[c], q.sumY[c], q.count[c] = 0, 0, 0
		}
		qe = 0
		for i := 0; i < q.n; i++ {
			p := q.data.RawRowView(i)
			c, d := q.Nearest(p[0], p[1])
			if c < 0 {
				continue // NaN coordinates
			}
			q.sumX[c] += p[0]
			q.sumY[c] += p[1]
			q.count[c]++
			qe += d
		}

		if qe/float64(q.n) <= minMeanQE {
			break
		}

		for c := 0; c < k; c++ {
			if q.count[c] == 0 {
				q.centers[c] = DeadCenter
				continue
			}
			n := float64(q.count[c])
			q.centers[c] = Point{X: q.sumX[c] / n, Y: q.sumY[c] / n}
		}
	}
	return q.centers, qe / float64(q.n), nil
}

// Train seeds k centers and adapts them online: every epoch feeds each
// point, in data order, to Step with the given learn rate.
//
// Returns the centers (shared with the quantizer), the mean quantization
// error after the last epoch and the same precondition errors as Run, plus
// ErrInvalidRate. Centers that never won a point stay at their seed; Train
// produces no DeadCenter.
func (q *VQ2D) Train(k, epochs int, learnRate float64) ([]Point, float64, error) {
	if err := q.check(k, epochs); err != nil {
		return q.centers, 0, err
	}
	if !(learnRate > 0 && learnRate <= 1) {
		return q.centers, 0, fmt.Errorf("%w: got %v", ErrInvalidRate, learnRate)
	}

	q.seed(k)
	for e := 0; e < epochs; e++ {
		for i := 0; i < q.n; i++ {
			p := q.data.RawRowView(i)
			// Seeded centers exist, so Step only fails for NaN coordinates.
			_, _ = q.Step(p[0], p[1], learnRate)
		}
	}

	var qe float64
	for i := 0; i < q.n; i++ {
		p := q.data.RawRowView(i)
		if c, d := q.Nearest(p[0], p[1]); c >= 0 {
			qe += d
		}
	}
	return q.centers, qe / float64(q.n), nil
}

func (q *VQ2D) check(k, steps int) error {
	switch {
	case q.n == 0:
		return ErrEmptyData
	case k <= 0 || k > q.n:
		return fmt.Errorf("%w: k=%d, n=%d", ErrInvalidK, k, q.n)
	case steps < 1:
		return fmt.Errorf("%w: got %d", ErrInvalidSteps, steps)
	}
	return nil
}

// seed resets the centers to k data points according to the init mode.
func (q *VQ2D) seed(k int) {
	if cap(q.centers) < k {
		q.centers = make([]Point, k)
	}
	q.centers = q.centers[:k]
	for c := range q.centers {
		i := c
		if q.init == InitRandomFromData {
			i = q.rng.Intn(q.n)
		}
		p := q.data.RawRowView(i)
		q.centers[c] = Point{X: p[0], Y: p[1]}
	}
}

// Nearest returns the index of the center closest to (x, y) and the squared
// distance to it. Ties go to the lower index. Without centers it returns
// -1 and +Inf.
func (q *VQ2D) Nearest(x, y float64) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for c, p := range q.centers {
		dx, dy := x-p.X, y-p.Y
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

// Step moves the center nearest to (x, y) by learnRate towards it and
// returns that center's index. It is the online counterpart of Run and
// requires existing centers; Train drives it over the whole data set.
func (q *VQ2D) Step(x, y, learnRate float64) (int, error) {
	c, _ := q.Nearest(x, y)
	if c < 0 {
		return -1, ErrNotInitialized
	}
	q.centers[c].X += learnRate * (x - q.centers[c].X)
	q.centers[c].Y += learnRate * (y - q.centers[c].Y)
	return c, nil
}

// Features describes the spread of every cluster around the current
// centers.
//
// Points are re-assigned to their nearest center and each cluster's raw
// moments are reduced with region.Moments.PCA, so the result has one entry
// per center in center order. Clusters with fewer than two points only
// carry their mean; clusters without points are all zero. Features returns
// nil before the first Run or Train.
func (q *VQ2D) Features() []region.PCAInfo {
	if len(q.centers) == 0 {
		return nil
	}
	moments := make([]region.Moments, len(q.centers))
	for i := 0; i < q.n; i++ {
		p := q.data.RawRowView(i)
		if c, _ := q.Nearest(p[0], p[1]); c >= 0 {
			moments[c].Add(p[0], p[1])
		}
	}

	features := make([]region.PCAInfo, len(moments))
	for c, m := range moments {
		features[c] = m.PCA()
	}
	return features
}
