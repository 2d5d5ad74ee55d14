package forecast

import "errors"

var (
	// ErrInsufficientHistory is returned when a team has fewer prior
	// periods than the lookback requires, or the requested target period
	// was never observed.
	ErrInsufficientHistory = errors.New("insufficient history for window")

	// ErrInsufficientData is returned when fitting is attempted with fewer
	// training windows than min_training_samples, or when the assembled
	// design matrix cannot identify the coefficients.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrFitTimeout is returned when the fit context expires before a
	// complete model exists.
	ErrFitTimeout = errors.New("model fit timed out")
)
