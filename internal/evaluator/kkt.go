package evaluator

import (
	"math"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// solveKKT solves the saddle-point system from spec.md §4.2:
//
//	[ M  Jᵀ ] [ a  ]   [ rhs  ]
//	[ J  0  ] [ -λ ] = [ -zeta ]
//
// by dense Gaussian elimination with partial pivoting on the augmented
// (nv+m) x (nv+m) matrix. No example repo in the retrieval pack ships a
// linear-algebra library (no gonum, no Eigen binding); with nv and m both
// small (a handful of joints and constraints per model) a hand-rolled
// dense solver is the right size for the problem, so this is the one
// place in the kernel that intentionally stays on the standard library.
func solveKKT(m [][]float64, j [][]float64, rhs, zeta []float64) (a, lambda []float64, err error) {
	nv := len(rhs)
	nc := len(zeta)
	n := nv + nc

	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, n+1)
	}
	for r := 0; r < nv; r++ {
		copy(aug[r][:nv], m[r])
		for c := 0; c < nc; c++ {
			aug[r][nv+c] = j[c][r]
		}
		aug[r][n] = rhs[r]
	}
	for r := 0; r < nc; r++ {
		copy(aug[nv+r][:nv], j[r])
		aug[nv+r][n] = -zeta[r]
	}

	if err := gaussianEliminate(aug, n); err != nil {
		return nil, nil, err
	}

	x := backSubstitute(aug, n)
	a = x[:nv]
	lambda = make([]float64, nc)
	for i := 0; i < nc; i++ {
		lambda[i] = -x[nv+i]
	}
	return a, lambda, nil
}

func gaussianEliminate(aug [][]float64, n int) error {
	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(aug[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(aug[r][col]); v > best {
				best, pivot = v, r
			}
		}
		if best < 1e-14 {
			return dynamo.NewError(dynamo.ErrorKindGeneric, "singular KKT matrix")
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		for r := col + 1; r < n; r++ {
			factor := aug[r][col] / aug[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c <= n; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}
	return nil
}

func backSubstitute(aug [][]float64, n int) []float64 {
	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := aug[r][n]
		for c := r + 1; c < n; c++ {
			sum -= aug[r][c] * x[c]
		}
		x[r] = sum / aug[r][r]
	}
	return x
}
