package svm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// dualSolution is the primal weight vector recovered from the dual solution.
// The last element is the bias weight.
type dualSolution struct {
	w      []float64
	nIter  int
	solved bool
}

// solveDualCD solves the L2-regularized hinge-loss SVM dual
//
//	min_α  ½ αᵀQα − eᵀα,  0 ≤ α_i ≤ C,  Q_ij = y_i y_j x_iᵀx_j
//
// by coordinate descent with shrinking (Hsieh et al. 2008, as in liblinear).
// Rows of X are augmented with a constant bias feature. yPM holds ±1 labels.
// The per-epoch visiting order is drawn from rng, so equal seeds give equal
// solutions.
func solveDualCD(X mat.Matrix, yPM []float64, C, tol float64, maxIter int, bias float64, rng *rand.Rand) dualSolution {
	n, p := X.Dims()
	dim := p + 1

	rows := make([][]float64, n)
	qd := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, dim)
		mat.Row(row[:p], i, X)
		row[p] = bias
		rows[i] = row
		qd[i] = floats.Dot(row, row)
	}

	w := make([]float64, dim)
	alpha := make([]float64, n)
	index := make([]int, n)
	for i := range index {
		index[i] = i
	}

	activeSize := n
	pgMaxOld := math.Inf(1)
	pgMinOld := math.Inf(-1)

	iter := 0
	solved := false
	for iter < maxIter {
		pgMaxNew := math.Inf(-1)
		pgMinNew := math.Inf(1)

		for i := 0; i < activeSize; i++ {
			j := i + rng.IntN(activeSize-i)
			index[i], index[j] = index[j], index[i]
		}

		for s := 0; s < activeSize; s++ {
			i := index[s]
			if qd[i] == 0 {
				continue
			}
			yi := yPM[i]
			g := yi*floats.Dot(w, rows[i]) - 1

			pg := 0.0
			switch {
			case alpha[i] == 0:
				if g > pgMaxOld {
					activeSize--
					index[s], index[activeSize] = index[activeSize], index[s]
					s--
					continue
				} else if g < 0 {
					pg = g
				}
			case alpha[i] == C:
				if g < pgMinOld {
					activeSize--
					index[s], index[activeSize] = index[activeSize], index[s]
					s--
					continue
				} else if g > 0 {
					pg = g
				}
			default:
				pg = g
			}

			pgMaxNew = math.Max(pgMaxNew, pg)
			pgMinNew = math.Min(pgMinNew, pg)

			if math.Abs(pg) > 1e-12 {
				old := alpha[i]
				alpha[i] = math.Min(math.Max(alpha[i]-g/qd[i], 0), C)
				floats.AddScaled(w, (alpha[i]-old)*yi, rows[i])
			}
		}

		iter++

		if pgMaxNew-pgMinNew <= tol {
			if activeSize == n {
				solved = true
				break
			}
			// 縮小した変数を戻して最終確認する
			activeSize = n
			pgMaxOld = math.Inf(1)
			pgMinOld = math.Inf(-1)
			continue
		}

		pgMaxOld = pgMaxNew
		pgMinOld = pgMinNew
		if pgMaxOld <= 0 {
			pgMaxOld = math.Inf(1)
		}
		if pgMinOld >= 0 {
			pgMinOld = math.Inf(-1)
		}
	}

	return dualSolution{w: w, nIter: iter, solved: solved}
}
