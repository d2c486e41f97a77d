package contracts

import "errors"

// ⭐ SSOT: 팩터 엔진 공통 에러는 여기서만 정의
var (
	// ErrInvalidConfig is returned for malformed parameters (window, lag, frequency, bins ...)
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPanel is returned for malformed panel axes
	ErrInvalidPanel = errors.New("invalid panel")

	// ErrMisaligned is returned when two inputs do not share a date or stock axis
	ErrMisaligned = errors.New("misaligned inputs")
)
