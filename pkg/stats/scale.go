package stats

// StandardScaler standardizes each column to zero mean and unit variance.
// Exported fields let a fitted scaler travel inside a serialized model.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

// Fitted reports whether Fit has run on non-empty input.
func (s *StandardScaler) Fitted() bool { return len(s.Mean) > 0 }

// Fit learns per-column mean and standard deviation. Constant columns get a
// unit deviation so Transform leaves them centred rather than dividing by 0.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return nil
	}
	r, c := len(X), len(X[0])
	s.Mean = make([]float64, c)
	s.Std = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			col[i] = X[i][j]
		}
		s.Mean[j] = Mean(col)
		s.Std[j] = Std(col)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return nil
}

// Transform returns a standardized copy of X. An unfitted scaler returns X.
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	if !s.Fitted() {
		return X
	}
	Y := make([][]float64, len(X))
	for i, x := range X {
		Y[i] = s.TransformRow(x)
	}
	return Y
}

// TransformRow standardizes a single row.
func (s *StandardScaler) TransformRow(x []float64) []float64 {
	if !s.Fitted() {
		return x
	}
	row := make([]float64, len(x))
	for j, v := range x {
		row[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return row
}

func (s *StandardScaler) FitTransform(X [][]float64) [][]float64 { _ = s.Fit(X); return s.Transform(X) }
