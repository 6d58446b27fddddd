package region

import "math"

// PCAInfo summarizes the spatial spread of a point set by its two principal
// axes.
//
// Len1 >= Len2 >= 0. Arc1 and Arc2 are the axis angles in radians as returned
// by atan2; they are not forced to be orthogonal, see Moments.PCA.
type PCAInfo struct {
	CX   float64 `json:"cx"`   // Center X
	CY   float64 `json:"cy"`   // Center Y
	Arc1 float64 `json:"arc1"` // Angle of the major axis
	Arc2 float64 `json:"arc2"` // Angle of the minor axis
	Len1 float64 `json:"len1"` // Length of the major axis
	Len2 float64 `json:"len2"` // Length of the minor axis
}

// Moments accumulates the zeroth, first and raw second order moments of a 2D
// point set.
type Moments struct {
	N     float64
	SumX  float64
	SumY  float64
	SumXX float64
	SumYY float64
	SumXY float64
}

// Add accumulates a single point.
func (m *Moments) Add(x, y float64) {
	m.N++
	m.SumX += x
	m.SumY += y
	m.SumXX += x * x
	m.SumYY += y * y
	m.SumXY += x * y
}

// AddSegment accumulates the centers (x+0.5, y+0.5) of every pixel in s
// using closed-form sums, so the cost does not depend on the run length.
func (m *Moments) AddSegment(s LineSegment) {
	n := float64(s.Len())
	a := float64(s.XStart)
	last := float64(s.XEnd - 1)
	y := float64(s.Row) + 0.5

	// sum of k and k^2 for k in [XStart, XEnd)
	s1 := sumTo(last) - sumTo(a-1)
	s2 := sumSquaresTo(last) - sumSquaresTo(a-1)

	sx := s1 + 0.5*n
	m.N += n
	m.SumX += sx
	m.SumY += n * y
	m.SumXX += s2 + s1 + 0.25*n
	m.SumYY += n * y * y
	m.SumXY += y * sx
}

// Merge adds the moments of o to m.
func (m *Moments) Merge(o Moments) {
	m.N += o.N
	m.SumX += o.SumX
	m.SumY += o.SumY
	m.SumXX += o.SumXX
	m.SumYY += o.SumYY
	m.SumXY += o.SumXY
}

// Mean returns the centroid. It returns (0, 0) for an empty set.
func (m Moments) Mean() (float64, float64) {
	if m.N == 0 {
		return 0, 0
	}
	return m.SumX / m.N, m.SumY / m.N
}

// PCA returns the principal axes of the raw second moment matrix.
//
// The matrix entries are Σx²/n, Σy²/n and Σxy/n; the mean is not subtracted.
// Use CenteredPCA for the covariance based variant.
//
// Eigenvalues are l1,l2 = (mxx+myy)/2 ± sqrt(((mxx-myy)/2)² + mxy²), the axis
// angles atan2(l-mxx, mxy) and the lengths sqrt(l). Sets with fewer than two
// points return only the center.
func (m Moments) PCA() PCAInfo {
	cx, cy := m.Mean()
	info := PCAInfo{CX: cx, CY: cy}
	if m.N < 2 {
		return info
	}
	mxx := m.SumXX / m.N
	myy := m.SumYY / m.N
	mxy := m.SumXY / m.N

	l1, l2 := symEigen2(mxx, myy, mxy)
	info.Arc1 = math.Atan2(l1-mxx, mxy)
	info.Arc2 = math.Atan2(l2-mxx, mxy)
	info.Len1 = math.Sqrt(l1)
	info.Len2 = math.Sqrt(math.Max(l2, 0))
	return info
}

// CenteredPCA returns the principal axes of the covariance matrix
// (mean-centered second moments). Axis lengths are 2*sqrt(l), i.e. twice the
// standard deviation along each axis.
func (m Moments) CenteredPCA() PCAInfo {
	cx, cy := m.Mean()
	info := PCAInfo{CX: cx, CY: cy}
	if m.N < 2 {
		return info
	}
	sxx := m.SumXX/m.N - cx*cx
	syy := m.SumYY/m.N - cy*cy
	sxy := m.SumXY/m.N - cx*cy

	l1, l2 := symEigen2(sxx, syy, sxy)
	info.Arc1 = math.Atan2(l1-sxx, sxy)
	info.Arc2 = math.Atan2(l2-sxx, sxy)
	info.Len1 = 2 * math.Sqrt(math.Max(l1, 0))
	info.Len2 = 2 * math.Sqrt(math.Max(l2, 0))
	return info
}

// symEigen2 returns the eigenvalues l1 >= l2 of [[a, c], [c, b]].
func symEigen2(a, b, c float64) (float64, float64) {
	p := 0.5 * (a + b)
	d := 0.5 * (a - b)
	d = math.Sqrt(d*d + c*c)
	return p + d, p - d
}

// sumTo returns 0 + 1 + ... + k.
func sumTo(k float64) float64 {
	return k * (k + 1) / 2
}

// sumSquaresTo returns 0² + 1² + ... + k².
func sumSquaresTo(k float64) float64 {
	return k * (k + 1) * (2*k + 1) / 6
}
