package labeling

import "errors"

var (
	// ErrMalformedLabels is returned when a serialized label sequence cannot be parsed.
	ErrMalformedLabels = errors.New("malformed label sequence")
	// ErrLengthMismatch is returned when a label sequence is not aligned with its tokens.
	ErrLengthMismatch = errors.New("label sequence length does not match token count")
)
