package domain

type UserID string

// Principal is the caller of an HTTP request. Anonymous callers have an empty ID.
type Principal struct {
	ID       UserID
	Username string
}

func (p Principal) IsAuthenticated() bool {
	return p.ID != ""
}
