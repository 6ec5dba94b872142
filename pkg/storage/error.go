package storage

// NotFoundError is returned when an item doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "news item not found"
	}

	return "news item not found: " + e.ID
}
