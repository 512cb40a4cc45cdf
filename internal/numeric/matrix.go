package numeric

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SingularTolerance is the |det| at or below which a 2x2 matrix is treated
// as non-invertible.
const SingularTolerance = 1e-12

// Mat2 is a 2x2 matrix in row-major order
type Mat2 [2][2]float64

// Inv2 returns the inverse of a, or false when a is numerically singular
func Inv2(a Mat2) (Mat2, bool) {
	det := a[0][0]*a[1][1] - a[0][1]*a[1][0]
	if math.Abs(det) <= SingularTolerance {
		return Mat2{}, false
	}
	inv := 1 / det
	return Mat2{
		{a[1][1] * inv, -a[0][1] * inv},
		{-a[1][0] * inv, a[0][0] * inv},
	}, true
}

// Mul2 returns a*b
func Mul2(a, b Mat2) Mat2 {
	return Mat2{
		{a[0][0]*b[0][0] + a[0][1]*b[1][0], a[0][0]*b[0][1] + a[0][1]*b[1][1]},
		{a[1][0]*b[0][0] + a[1][1]*b[1][0], a[1][0]*b[0][1] + a[1][1]*b[1][1]},
	}
}

// Sandwich returns bread * meat * bread, the robust covariance form
func Sandwich(bread, meat Mat2) Mat2 {
	b := bread.dense()
	m := meat.dense()
	var out mat.Dense
	out.Product(b, m, b)
	return Mat2{
		{out.At(0, 0), out.At(0, 1)},
		{out.At(1, 0), out.At(1, 1)},
	}
}

func (a Mat2) dense() *mat.Dense {
	return mat.NewDense(2, 2, []float64{a[0][0], a[0][1], a[1][0], a[1][1]})
}
