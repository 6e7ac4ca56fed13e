package intelligence

import "errors"

var (
	ErrInvalidForecast       = errors.New("invalid sales forecast")
	ErrInvalidSafetyRule     = errors.New("invalid safety stock rule")
	ErrDuplicateDefaultRoute = errors.New("more than one default route for location pair")
	ErrInvalidTransition     = errors.New("invalid suggestion status transition")
	ErrSuggestionNotFound    = errors.New("suggestion not found")
)
