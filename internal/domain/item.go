package domain

import "time"

// Item is the collaborator-owned record this engine reads for existence
// checks and content timestamps. Content storage and encryption live outside
// this service.
type Item struct {
	ID          string
	Name        string
	UpdatedTime time.Time
}

// UserItem grants one user visibility of one item. Membership reflects
// current sharing state, which is why Update visibility is evaluated against
// it at read time rather than at edit time.
type UserItem struct {
	UserID string
	ItemID string
}
