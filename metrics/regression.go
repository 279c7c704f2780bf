// Package metrics provides the evaluation metrics used for outer-fold scoring
// and inner model selection.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
//
// 0/1ラベルとハード予測に対しては誤分類率と一致する。
// neg_mean_absolute_error スコアリングはこの値の符号を反転して使う。
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkVectors("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	n := yTrue.Len()

	// MAE = (1/n) * Σ|yTrue - yPred|
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkVectors("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	n := yTrue.Len()

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}
