// Package news ranks career news for a student with the upstream model.
package news

import (
	"time"

	"github.com/google/uuid"
)

// Item is a career news article.
type Item struct {
	ID        string    `json:"id" sql:"id"`
	Title     string    `json:"title" sql:"title"`
	Category  string    `json:"category" sql:"category"`
	Content   string    `json:"content" sql:"content"`
	CreatedAt time.Time `json:"created_at" sql:"created_at"`
}

// NewItem creates an item with a fresh ID and the current time.
func NewItem(title, category, content string) *Item {
	return &Item{
		ID:        uuid.NewString(),
		Title:     title,
		Category:  category,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
