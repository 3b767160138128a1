package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SuggestionStatus represents the lifecycle status of a suggestion
type SuggestionStatus string

const (
	SuggestionOpen    SuggestionStatus = "OPEN"
	SuggestionPlanned SuggestionStatus = "PLANNED"
	SuggestionDone    SuggestionStatus = "DONE"
)

type Suggestion struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	AuthorID string `gorm:"index;not null" json:"authorId"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`

	Title string `gorm:"not null" json:"title"`
	Body  string `gorm:"type:text" json:"body"`

	Status SuggestionStatus `gorm:"type:text;default:'OPEN'" json:"status"`
	Votes  int              `gorm:"default:0" json:"votes"`

	// Virtual field: whether the current user voted
	HasVoted bool `gorm:"-" json:"hasVoted"`
}

func (Suggestion) TableName() string {
	return "suggestions"
}

func (s *Suggestion) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return
}

// SuggestionVote enforces one vote per user per suggestion.
type SuggestionVote struct {
	UserID       string    `gorm:"primaryKey;type:text" json:"userId"`
	SuggestionID string    `gorm:"primaryKey;type:text" json:"suggestionId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (SuggestionVote) TableName() string {
	return "suggestion_votes"
}
