package tasks

import "time"

// Task priorities. Zero means unset; higher sorts first in daily views.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Task models a persisted to-do item, optionally anchored to a note.
// CompletedAt is non-nil exactly when IsCompleted is true.
type Task struct {
	ID          string     `gorm:"column:id;primaryKey;size:36;not null"`
	UserID      string     `gorm:"column:user_id;size:36;not null;index"`
	NoteID      *string    `gorm:"column:note_id;size:36;index"`
	Content     string     `gorm:"column:content;type:text;not null"`
	IsCompleted bool       `gorm:"column:is_completed;not null;default:false"`
	Priority    int        `gorm:"column:priority;not null;default:0"`
	DueDate     *time.Time `gorm:"column:due_date"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

// TableName provides the explicit table binding for GORM.
func (Task) TableName() string {
	return "tasks"
}
