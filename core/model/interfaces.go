// Package model defines the estimator contracts shared by the scaler, the
// classifier and the pipeline that binds them.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。yは n×1 の列ベクトル（0/1ラベル）
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対するクラスラベル（n×1）を返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Classifier combines interfaces for binary classification models.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns an n×2 matrix of class probabilities, column j
	// holding P(class = Classes()[j]).
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted class labels seen during fitting.
	Classes() []int
}

// DecisionFunctioner is implemented by margin-based classifiers.
type DecisionFunctioner interface {
	// DecisionFunction returns the signed distance to the separating hyperplane (n×1).
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}
