package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session cache errors
	ErrMalformedEntry = fmt.Errorf("malformed session cache entry")
	ErrStorage        = fmt.Errorf("session storage failure")

	// Remote status errors, collapsed to logged out by the caller
	ErrStatusRequest   = fmt.Errorf("auth status request failed")
	ErrStatusResponse  = fmt.Errorf("unexpected auth status response")
	ErrTimeout         = fmt.Errorf("operation timed out")
	ErrCallbackUnknown = fmt.Errorf("unknown callback")

	// Navigation and local listener errors
	ErrNavigation         = fmt.Errorf("navigation failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrLoginIncomplete    = fmt.Errorf("login did not complete")

	// Input validation errors
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrUnknownSpectacle = fmt.Errorf("unknown spectacle")
)
