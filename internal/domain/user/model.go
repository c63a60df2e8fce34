package user

// Principal is the verified caller behind an admin bearer token.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}
