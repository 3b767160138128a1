package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProgress tracks one user's history with one module. Completed is
// monotonic (false -> true exactly once), Score keeps the best attempt,
// TimeSpent accumulates across attempts.
type UserProgress struct {
	ID        string    `gorm:"primaryKey;type:text" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID   string `gorm:"uniqueIndex:idx_user_module;not null" json:"userId"`
	ModuleID int    `gorm:"uniqueIndex:idx_user_module;not null" json:"moduleId"`

	Completed bool `gorm:"default:false" json:"completed"`
	Score     int  `gorm:"default:0" json:"score"`
	TimeSpent int  `gorm:"default:0" json:"timeSpent"` // seconds, cumulative
	Attempts  int  `gorm:"default:0" json:"attempts"`

	LastAttemptAt time.Time  `json:"lastAttemptAt"`
	CompletedAt   *time.Time `json:"completedAt"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

func (p *UserProgress) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}
