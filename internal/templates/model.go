package templates

import (
	"time"

	"github.com/hyperscribe/backend/internal/notes"
)

// Template models a reusable note scaffold. System defaults have a nil
// owner and are immutable through user-facing operations.
type Template struct {
	ID          string         `gorm:"column:id;primaryKey;size:36;not null"`
	Name        string         `gorm:"column:name;size:255;not null"`
	Description string         `gorm:"column:description;type:text"`
	Content     string         `gorm:"column:content;type:text;not null"`
	Category    notes.Category `gorm:"column:category;size:32;not null"`
	IsDefault   bool           `gorm:"column:is_default;not null;default:false"`
	UserID      *string        `gorm:"column:user_id;size:36;index"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Template) TableName() string {
	return "templates"
}
