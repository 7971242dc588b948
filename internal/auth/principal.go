package auth

// Principal represents the authenticated identity of a caller.
type Principal struct {
	// UserID is the stable, unique identifier for the user.
	UserID string

	// Email is the account email, empty for tokens that do not carry one.
	Email string

	// IsGuest marks throwaway demo accounts.
	IsGuest bool
}
