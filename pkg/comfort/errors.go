package comfort

import "errors"

var (
	// ErrMissingSegment is returned when a coefficient table has no entry for a
	// requested segment. It means the caller and the tables disagree on the
	// segment vocabulary.
	ErrMissingSegment = errors.New("segment missing from coefficient table")

	// ErrShapeMismatch is returned when the segment-keyed inputs of one evaluation
	// do not share an identical key set.
	ErrShapeMismatch = errors.New("input collections do not share the same segments")

	// ErrDegenerateAggregation is reported when every overall-sensation weight is
	// zero. The accompanying value is the unweighted mean of the local sensations.
	ErrDegenerateAggregation = errors.New("overall sensation weights sum to zero")

	// ErrNonFinite is returned for NaN or infinite inputs, and for rates so large
	// that the dynamic sensation terms overflow into NaN.
	ErrNonFinite = errors.New("value is not finite")
)
