package chat

import "time"

// Message roles on a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat models a conversation with the assistant, optionally anchored to
// one of the user's notes.
type Chat struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null"`
	UserID    string    `gorm:"column:user_id;size:36;not null;index"`
	NoteID    *string   `gorm:"column:note_id;size:36;index"`
	Title     string    `gorm:"column:title;size:200;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName exposes the table backing conversations.
func (Chat) TableName() string {
	return "chats"
}

// Message is a single turn inside a conversation.
type Message struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null"`
	ChatID    string    `gorm:"column:chat_id;size:36;not null;index"`
	Role      string    `gorm:"column:role;size:16;not null"`
	Content   string    `gorm:"column:content;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName exposes the table backing conversation messages.
func (Message) TableName() string {
	return "chat_messages"
}
