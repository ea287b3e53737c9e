package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of note and template categories.
type Category string

const (
	CategoryBrainDump    Category = "brain-dump"
	CategoryJournal      Category = "journal"
	CategoryToDo         Category = "to-do"
	CategoryMoodTracking Category = "mood-tracking"
	CategoryCustom       Category = "custom"
)

// ErrInvalidCategory indicates a category value outside the enumeration.
var ErrInvalidCategory = errors.New("notes: invalid category")

// Categories lists every valid category in a fixed order.
func Categories() []Category {
	return []Category{
		CategoryBrainDump,
		CategoryJournal,
		CategoryToDo,
		CategoryMoodTracking,
		CategoryCustom,
	}
}

// ParseCategory validates raw input and returns a Category.
func ParseCategory(rawInput string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(rawInput))) {
	case CategoryBrainDump:
		return CategoryBrainDump, nil
	case CategoryJournal:
		return CategoryJournal, nil
	case CategoryToDo:
		return CategoryToDo, nil
	case CategoryMoodTracking:
		return CategoryMoodTracking, nil
	case CategoryCustom:
		return CategoryCustom, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, rawInput)
	}
}

// String returns the wire value of the category.
func (c Category) String() string {
	return string(c)
}

// DisplayLabel returns the human-facing label for the category.
func (c Category) DisplayLabel() string {
	switch c {
	case CategoryBrainDump:
		return "Brain Dump"
	case CategoryJournal:
		return "Journal"
	case CategoryToDo:
		return "To-Do"
	case CategoryMoodTracking:
		return "Mood Tracking"
	case CategoryCustom:
		return "Custom"
	}
	return string(c)
}

// Lifecycle is the tagged note state derived from the archive and delete
// flags. Deleted dominates archived in every filter.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleArchived Lifecycle = "archived"
	LifecycleDeleted  Lifecycle = "deleted"
)

// AttachmentType enumerates supported attachment kinds.
type AttachmentType string

const (
	AttachmentAudio AttachmentType = "audio"
	AttachmentImage AttachmentType = "image"
	AttachmentFile  AttachmentType = "file"
)

// ErrInvalidAttachmentType indicates an attachment kind outside the enumeration.
var ErrInvalidAttachmentType = errors.New("notes: invalid attachment type")

// ParseAttachmentType validates raw input and returns an AttachmentType.
func ParseAttachmentType(rawInput string) (AttachmentType, error) {
	switch AttachmentType(strings.ToLower(strings.TrimSpace(rawInput))) {
	case AttachmentAudio:
		return AttachmentAudio, nil
	case AttachmentImage:
		return AttachmentImage, nil
	case AttachmentFile:
		return AttachmentFile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAttachmentType, rawInput)
	}
}

// Note models a persisted user note.
type Note struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null"`
	UserID       string    `gorm:"column:user_id;size:36;not null;index:idx_notes_user_edited,priority:1"`
	Title        string    `gorm:"column:title;size:100;not null"`
	Content      string    `gorm:"column:content;type:text;not null"`
	Category     Category  `gorm:"column:category;size:32;not null"`
	TemplateID   *string   `gorm:"column:template_id;size:36"`
	IsArchived   bool      `gorm:"column:is_archived;not null;default:false"`
	IsDeleted    bool      `gorm:"column:is_deleted;not null;default:false"`
	LastEditedAt time.Time `gorm:"column:last_edited_at;not null;index:idx_notes_user_edited,priority:2"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// Lifecycle reports the tagged state for the note.
func (n Note) Lifecycle() Lifecycle {
	if n.IsDeleted {
		return LifecycleDeleted
	}
	if n.IsArchived {
		return LifecycleArchived
	}
	return LifecycleActive
}

// Attachment models a file attached to a note.
type Attachment struct {
	ID            string         `gorm:"column:id;primaryKey;size:36;not null"`
	NoteID        string         `gorm:"column:note_id;size:36;not null;index"`
	Type          AttachmentType `gorm:"column:type;size:16;not null"`
	Name          string         `gorm:"column:name;size:255;not null"`
	URL           string         `gorm:"column:url;size:2048;not null"`
	StorageKey    string         `gorm:"column:storage_key;size:512;not null"`
	Transcription *string        `gorm:"column:transcription;type:text"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Attachment) TableName() string {
	return "attachments"
}
