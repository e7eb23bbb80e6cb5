package types

// SessionMode is derived from the request credentials and passed into the
// cart engine explicitly. The anonymous->authenticated transition is the
// sole trigger for the cart merge.
type SessionMode string

const (
	SessionAnonymous     SessionMode = "anonymous"
	SessionAuthenticated SessionMode = "authenticated"
)
