package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ridge keeps the normal equations solvable when feature columns are collinear
const ridge = 1e-6

// LinearRegressor predicts finishing position by ordinary least squares.
// Coefficients[0] is the intercept.
type LinearRegressor struct {
	Coefficients []float64 `json:"coefficients"`
}

// Fit solves (XᵀX + λI)β = Xᵀy with a vanishing λ
func (r *LinearRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ErrInsufficientData
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d targets", ErrFeatureMismatch, len(X), len(y))
	}
	width := len(X[0]) + 1
	design := mat.NewDense(len(X), width, nil)
	for i, x := range X {
		if len(x)+1 != width {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(x), width-1)
		}
		design.Set(i, 0, 1)
		for j, v := range x {
			design.Set(i, j+1, v)
		}
	}
	target := mat.NewVecDense(len(y), append([]float64(nil), y...))

	var gram mat.SymDense
	gram.SymOuterK(1, design.T())
	for j := 0; j < width; j++ {
		gram.SetSym(j, j, gram.At(j, j)+ridge*float64(len(X)))
	}
	var rhs mat.VecDense
	rhs.MulVec(design.T(), target)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return fmt.Errorf("least squares: normal equations are not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return fmt.Errorf("least squares: %w", err)
	}
	r.Coefficients = make([]float64, width)
	for j := range r.Coefficients {
		r.Coefficients[j] = beta.AtVec(j)
	}
	return nil
}

// Predict returns the fitted value for each row
func (r *LinearRegressor) Predict(X [][]float64) ([]float64, error) {
	if len(r.Coefficients) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, x := range X {
		if len(x)+1 != len(r.Coefficients) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(x), len(r.Coefficients)-1)
		}
		v := r.Coefficients[0]
		for j, f := range x {
			v += r.Coefficients[j+1] * f
		}
		out[i] = v
	}
	return out, nil
}
