package shared

import "fmt"

var (
	// Configuration errors abort a cycle before any external call.
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Extraction errors are fatal for the current cycle. Nothing has been
	// written to the warehouse yet, so the cycle is safe to retry.
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrExtractionFailed = fmt.Errorf("extraction failed")

	// Landing errors are fatal; no staging or merge is attempted.
	ErrLandingFailed = fmt.Errorf("landing write failed")

	// Merge errors are logged distinctly from extraction noise so an operator
	// can reconcile the dimension table manually if a retry does not resolve
	// them.
	ErrMergeFailed = fmt.Errorf("dimension merge failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
