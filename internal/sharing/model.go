package sharing

import "time"

// NoteShare models a public, time-limited, read-only link to a note.
// A share is resolvable only while IsActive is true and ExpiresAt (when
// set) is in the future; the active flag only ever transitions to false.
type NoteShare struct {
	ID        string     `gorm:"column:id;primaryKey;size:36;not null"`
	NoteID    string     `gorm:"column:note_id;size:36;not null;index"`
	Token     string     `gorm:"column:token;size:64;not null;uniqueIndex"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedBy string     `gorm:"column:created_by;size:36;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (NoteShare) TableName() string {
	return "note_shares"
}

// SharedNote is the anonymous read-only projection of a shared note.
// It never carries the owner's identity.
type SharedNote struct {
	Title        string
	Content      string
	Category     string
	CreatedAt    time.Time
	LastEditedAt time.Time
}
