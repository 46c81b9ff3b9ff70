// Package linear provides ordinary least squares regression.
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/core/model"
	"github.com/YuminosukeSato/ventureml/core/parallel"
	"github.com/YuminosukeSato/ventureml/metrics"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator

	Weights      *mat.VecDense // 重み（係数）
	Intercept    float64       // 切片
	NFeatures    int           // 特徴量の数
	fitIntercept bool
}

// Option は LinearRegression の設定関数
type Option func(*LinearRegression)

// WithFitIntercept は切片を推定するかどうかを設定する
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{fitIntercept: true}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Name implements model.Named.
func (lr *LinearRegression) Name() string { return "LinearRegression" }

// Fit はモデルを訓練データで学習させる
// 最小二乗問題 min ‖[1 X]w - y‖² を QR 分解で解く
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	if r < c+offset {
		return errors.NewValueError("LinearRegression.Fit", "fewer samples than coefficients")
	}

	// 切片項のために X の先頭に 1 の列を追加
	design := mat.NewDense(r, c+offset, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	yVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	var w mat.VecDense
	if err := w.SolveVec(design, yVec); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", w.RawVector().Data, 0); err != nil {
		return err
	}

	lr.Intercept = 0
	if offset == 1 {
		lr.Intercept = w.AtVec(0)
	}
	lr.Weights = mat.NewVecDense(c, nil)
	lr.Weights.CopyVec(w.SliceVec(offset, c+offset))
	lr.NFeatures = c

	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	// y = X * weights + intercept
	pred := mat.NewVecDense(r, nil)
	pred.MulVec(X, lr.Weights)
	for i := 0; i < r; i++ {
		pred.SetVec(i, pred.AtVec(i)+lr.Intercept)
	}
	return pred, nil
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	return mat.Col(nil, 0, lr.Weights)
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	return metrics.R2Score(mat.NewVecDense(r, mat.Col(nil, 0, y)), yPred.(*mat.VecDense))
}

// GetParams implements model.ParameterGetter.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{"fit_intercept": lr.fitIntercept}
}
