package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// AUC はROC曲線下面積（Area Under the ROC Curve）を計算する
//
// yTrue は0/1のラベル、yScore は陽性クラスのスコア（確率または決定関数値）。
// 同点のスコアは同じ閾値グループとして扱われ、台形則により半分の寄与となる。
// 片方のクラスしか含まない場合AUCは定義されないためDegenerateInputErrorを返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	if err := checkVectors("AUC", yTrue, yScore); err != nil {
		return 0, err
	}
	n := yTrue.Len()
	labels := make([]int, n)
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		label, err := binaryLabel("AUC", yTrue.AtVec(i))
		if err != nil {
			return 0, err
		}
		labels[i] = label
		scores[i] = yScore.AtVec(i)
	}
	return ROCAUC(labels, scores)
}

// ROCAUC computes the ROC AUC of scores against 0/1 labels using
// gonum's stat.ROC and trapezoidal integration.
func ROCAUC(labels []int, scores []float64) (float64, error) {
	n := len(labels)
	if n == 0 {
		return 0, errors.NewValueError("ROCAUC", "empty input")
	}
	if len(scores) != n {
		return 0, errors.NewDimensionError("ROCAUC", n, len(scores), 0)
	}
	if err := errors.CheckNumericalStability("ROCAUC", scores, 0); err != nil {
		return 0, err
	}

	y := make([]float64, n)
	classes := make([]bool, n)
	var positives int
	for i, label := range labels {
		switch label {
		case 0:
		case 1:
			classes[i] = true
			positives++
		default:
			return 0, errors.NewValueError("ROCAUC", fmt.Sprintf("label %d is not binary", label))
		}
		y[i] = scores[i]
	}
	if positives == 0 || positives == n {
		return 0, errors.NewDegenerateInputError("roc_auc",
			fmt.Sprintf("only one class present (%d positives of %d)", positives, n))
	}

	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// BinaryLogLoss は二値分類の対数損失を計算する
// 確率は log(0) を避けるため [eps, 1-eps] にクリップされる
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	if err := checkVectors("BinaryLogLoss", yTrue, yProb); err != nil {
		return 0, err
	}
	n := yTrue.Len()
	var sum float64
	for i := 0; i < n; i++ {
		label, err := binaryLabel("BinaryLogLoss", yTrue.AtVec(i))
		if err != nil {
			return 0, err
		}
		p := yProb.AtVec(i)
		if label == 1 {
			sum -= errors.StabilizeLog(p)
		} else {
			sum -= errors.StabilizeLog(1 - p)
		}
	}
	return sum / float64(n), nil
}

// BrierScore は予測確率と0/1ラベルの平均二乗誤差を計算する
func BrierScore(yTrue, yProb *mat.VecDense) (float64, error) {
	if err := checkVectors("BrierScore", yTrue, yProb); err != nil {
		return 0, err
	}
	for i := 0; i < yTrue.Len(); i++ {
		if _, err := binaryLabel("BrierScore", yTrue.AtVec(i)); err != nil {
			return 0, err
		}
	}
	return MSE(yTrue, yProb)
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkVectors("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	n := yTrue.Len()
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// BalancedAccuracy はyTrueに現れる各クラスの再現率の平均を計算する
func BalancedAccuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkVectors("BalancedAccuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	n := yTrue.Len()
	support := make(map[float64]int)
	hits := make(map[float64]int)
	for i := 0; i < n; i++ {
		c := yTrue.AtVec(i)
		support[c]++
		if yPred.AtVec(i) == c {
			hits[c]++
		}
	}
	var sum float64
	for c, s := range support {
		sum += float64(hits[c]) / float64(s)
	}
	return sum / float64(len(support)), nil
}

func checkVectors(op string, yTrue, yPred *mat.VecDense) error {
	if yTrue == nil || yPred == nil {
		return errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return nil
}

func binaryLabel(op string, v float64) (int, error) {
	switch v {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	default:
		if math.IsNaN(v) {
			return 0, errors.NewValueError(op, "label is NaN")
		}
		return 0, errors.NewValueError(op, fmt.Sprintf("label %g is not binary", v))
	}
}
