package svm

import (
	"math"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Platt sigmoid solver constants (Lin, Lin & Weng 2007).
const (
	plattMaxIter = 100
	plattMinStep = 1e-10
	plattSigma   = 1e-12
	plattEps     = 1e-5
)

// plattScaling holds P(y=1|f) = 1 / (1 + exp(A·f + B)).
type plattScaling struct {
	A, B float64
}

// probability returns P(y=1) for decision value f without overflowing.
func (p plattScaling) probability(f float64) float64 {
	return errors.Sigmoid(-(f*p.A + p.B))
}

// fitPlatt fits the sigmoid to decision values and ±1 labels by Newton's
// method with backtracking line search on regularized targets.
func fitPlatt(dec, yPM []float64) (plattScaling, error) {
	var prior0, prior1 float64
	for _, y := range yPM {
		if y > 0 {
			prior1++
		} else {
			prior0++
		}
	}

	hiTarget := (prior1 + 1) / (prior1 + 2)
	loTarget := 1 / (prior0 + 2)
	t := make([]float64, len(dec))
	for i, y := range yPM {
		if y > 0 {
			t[i] = hiTarget
		} else {
			t[i] = loTarget
		}
	}

	objective := func(A, B float64) float64 {
		var f float64
		for i, d := range dec {
			fApB := d*A + B
			f += (t[i]-1)*fApB + errors.LogOnePlusExp(fApB)
		}
		return f
	}

	A := 0.0
	B := math.Log((prior0 + 1) / (prior1 + 1))
	fval := objective(A, B)

	iter := 0
	for ; iter < plattMaxIter; iter++ {
		h11, h22, h21 := plattSigma, plattSigma, 0.0
		g1, g2 := 0.0, 0.0
		for i, d := range dec {
			fApB := d*A + B
			var p, q float64
			if fApB >= 0 {
				e := math.Exp(-fApB)
				p = e / (1 + e)
				q = 1 / (1 + e)
			} else {
				e := math.Exp(fApB)
				p = 1 / (1 + e)
				q = e / (1 + e)
			}
			d2 := p * q
			h11 += d * d * d2
			h22 += d2
			h21 += d * d2
			d1 := t[i] - p
			g1 += d * d1
			g2 += d1
		}

		if math.Abs(g1) < plattEps && math.Abs(g2) < plattEps {
			break
		}

		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= plattMinStep {
			newA := A + step*dA
			newB := B + step*dB
			newF := objective(newA, newB)
			if newF < fval+0.0001*step*gd {
				A, B, fval = newA, newB, newF
				break
			}
			step /= 2
		}
		if step < plattMinStep {
			// 直線探索失敗: 現在の解を採用する
			break
		}
	}

	if iter >= plattMaxIter {
		errors.Warn(errors.NewConvergenceWarning("platt_newton", iter, "Platt scaling reached the iteration limit"))
	}
	if err := errors.CheckNumericalStability("platt_newton", []float64{A, B}, iter); err != nil {
		return plattScaling{}, err
	}
	return plattScaling{A: A, B: B}, nil
}
