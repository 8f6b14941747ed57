package layers

import "math"

// Matrix represents a 2D affine transformation matrix.
// It uses a 2x3 matrix in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// This represents the transformation:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{
		A: 1, B: 0, C: 0,
		D: 0, E: 1, F: 0,
	}
}

// Translation creates a translation matrix.
func Translation(x, y float64) Matrix {
	return Matrix{
		A: 1, B: 0, C: x,
		D: 0, E: 1, F: y,
	}
}

// Scaling creates a scaling matrix.
func Scaling(x, y float64) Matrix {
	return Matrix{
		A: x, B: 0, C: 0,
		D: 0, E: y, F: 0,
	}
}

// Rotation creates a rotation matrix (angle in radians).
func Rotation(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{
		A: cos, B: -sin, C: 0,
		D: sin, E: cos, F: 0,
	}
}

// Skewing creates a skew matrix.
func Skewing(x, y float64) Matrix {
	return Matrix{
		A: 1, B: math.Tan(x), C: 0,
		D: math.Tan(y), E: 1, F: 0,
	}
}

// Multiply multiplies two matrices (m * other).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// Apply applies the transformation to a point.
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.C,
		Y: m.D*p.X + m.E*p.Y + m.F,
	}
}

// ScaleFactor returns the mean length of the two transformed axis
// vectors, the scalar by which the matrix scales isotropic distances.
// Identity and pure rotations return 1.
func (m Matrix) ScaleFactor() float64 {
	return (math.Hypot(m.A, m.D) + math.Hypot(m.B, m.E)) / 2
}

// Invert returns the inverse matrix.
// Returns the identity matrix if the matrix is not invertible.
func (m Matrix) Invert() Matrix {
	det := m.A*m.E - m.B*m.D
	if math.Abs(det) < 1e-10 {
		return Identity()
	}
	invDet := 1.0 / det
	return Matrix{
		A: m.E * invDet,
		B: -m.B * invDet,
		C: (m.B*m.F - m.E*m.C) * invDet,
		D: -m.D * invDet,
		E: m.A * invDet,
		F: (m.D*m.C - m.A*m.F) * invDet,
	}
}

// IsIdentity reports whether the matrix is (numerically) the identity.
func (m Matrix) IsIdentity() bool {
	const eps = 1e-10
	return math.Abs(m.A-1) < eps && math.Abs(m.B) < eps && math.Abs(m.C) < eps &&
		math.Abs(m.D) < eps && math.Abs(m.E-1) < eps && math.Abs(m.F) < eps
}

// Transform holds a layer's decomposed affine transform: translation,
// non-uniform scale, rotation (radians) and two skew components. The
// matrix form is composed as translate * rotate * skew * scale.
type Transform struct {
	X, Y     float64
	ScaleX   float64
	ScaleY   float64
	Rotation float64
	SkewX    float64
	SkewY    float64
}

// IdentityTransform returns the no-op transform.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// Matrix composes the transform components into an affine matrix.
func (t Transform) Matrix() Matrix {
	m := Translation(t.X, t.Y)
	if t.Rotation != 0 {
		m = m.Multiply(Rotation(t.Rotation))
	}
	if t.SkewX != 0 || t.SkewY != 0 {
		m = m.Multiply(Skewing(t.SkewX, t.SkewY))
	}
	if t.ScaleX != 1 || t.ScaleY != 1 {
		m = m.Multiply(Scaling(t.ScaleX, t.ScaleY))
	}
	return m
}

// IsFinite reports whether every component is a finite number.
func (t Transform) IsFinite() bool {
	for _, v := range [...]float64{t.X, t.Y, t.ScaleX, t.ScaleY, t.Rotation, t.SkewX, t.SkewY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsIdentity reports whether the transform is the no-op transform.
func (t Transform) IsIdentity() bool {
	return t == IdentityTransform()
}
