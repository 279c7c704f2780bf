// Package preprocessing provides the robust scaling transform applied inside
// every cross-validation fold.
package preprocessing

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// 列数がこの値を超えるとFitを列ごとに並列化する
const parallelColumnThreshold = 64

// ゼロ分散とみなすIQRの上限
const zeroSpreadEpsilon = 10 * 2.220446049250313e-16

// ScalerState は学習済みスケーラーの統計量のコピー
type ScalerState struct {
	// Center は各特徴量の中央値
	Center []float64
	// Scale は各特徴量の四分位範囲（ゼロ分散の列は1）
	Scale []float64
	// NFeatures は特徴量の数
	NFeatures int
}

// RobustScaler は中央値と四分位範囲による外れ値に頑健なスケーラー
// 変換式: (x - median) / IQR
//
// 統計量は Fit に渡された訓練データのみから計算され、Transform は状態を
// 変更しない。テストデータの統計量がスケーラーに混入することはない。
type RobustScaler struct {
	state *model.StateManager

	center     []float64
	scale      []float64
	zeroSpread []int
}

// NewRobustScaler は新しいRobustScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewRobustScaler()
//	err := scaler.Fit(XTrain)
//	XTest, err := scaler.Transform(XTest)
func NewRobustScaler() *RobustScaler {
	return &RobustScaler{state: model.NewStateManager("RobustScaler")}
}

// Fit は訓練データから各列の中央値と四分位範囲を計算する
//
// 四分位数はTukeyのヒンジ（下半分・上半分の中央値）で求める。
// IQRが0の列は中心化のみ行い、警告を1回だけ発行する。
func (s *RobustScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RobustScaler.Fit")
	}
	if err := errors.CheckMatrix("RobustScaler.Fit", X, r, c); err != nil {
		return err
	}

	center := make([]float64, c)
	scale := make([]float64, c)
	parallel.ParallelizeWithThreshold(c, parallelColumnThreshold, func(start, end int) {
		column := make([]float64, r)
		for j := start; j < end; j++ {
			for i := 0; i < r; i++ {
				column[i] = X.At(i, j)
			}
			center[j], scale[j] = columnStatistics(column)
		}
	})

	var zeroSpread []int
	for j := range scale {
		if scale[j] <= zeroSpreadEpsilon || math.IsNaN(scale[j]) {
			scale[j] = 1.0
			zeroSpread = append(zeroSpread, j)
		}
	}

	s.center = center
	s.scale = scale
	s.zeroSpread = zeroSpread
	s.state.SetFitted(c, r)

	if len(zeroSpread) > 0 {
		errors.Warn(errors.NewZeroSpreadWarning(zeroSpread))
	}
	return nil
}

// columnStatistics は1列分の中央値とIQRを返す。1サンプルの場合IQRは0
func columnStatistics(column []float64) (median, iqr float64) {
	data := stats.Float64Data(column)
	median, _ = stats.Median(data)
	if len(column) < 2 {
		return median, 0
	}
	iqr, err := stats.InterQuartileRange(data)
	if err != nil {
		return median, 0
	}
	return median, iqr
}

// Transform は学習済みの統計量でデータをスケーリングする
func (s *RobustScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.RequireFeatures("RobustScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.center[j]) / s.scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *RobustScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform はスケーリングされたデータを元のスケールに戻す
func (s *RobustScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("InverseTransform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.RequireFeatures("RobustScaler.InverseTransform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*s.scale[j] + s.center[j]
	}, X)
	return result, nil
}

// State は学習済み統計量のコピーを返す。未学習の場合はNotFittedError
func (s *RobustScaler) State() (ScalerState, error) {
	if err := s.state.RequireFitted("State"); err != nil {
		return ScalerState{}, err
	}
	return ScalerState{
		Center:    append([]float64(nil), s.center...),
		Scale:     append([]float64(nil), s.scale...),
		NFeatures: len(s.center),
	}, nil
}

// ZeroSpreadColumns はIQRが0だった列のインデックスを返す
func (s *RobustScaler) ZeroSpreadColumns() []int {
	return append([]int(nil), s.zeroSpread...)
}

// IsFitted は学習済みかどうかを返す
func (s *RobustScaler) IsFitted() bool { return s.state.IsFitted() }

// GetParams はスケーラーのパラメータを取得する
func (s *RobustScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_centering": true,
		"with_scaling":   true,
		"quantile_range": [2]float64{25, 75},
	}
}

// String はスケーラーの文字列表現を返す
func (s *RobustScaler) String() string {
	if !s.state.IsFitted() {
		return "RobustScaler()"
	}
	nFeatures, _ := s.state.Dimensions()
	return fmt.Sprintf("RobustScaler(n_features=%d, zero_spread=%d)", nFeatures, len(s.zeroSpread))
}
