package types

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderUser SenderType = "user"
	SenderAI   SenderType = "ai"
)

// Message is one immutable entry of a conversation. Conversations are ordered
// by Timestamp.
type Message struct {
	ID         string     `json:"id"`
	Sender     string     `json:"sender"`
	SenderType SenderType `json:"sender_type"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	ProviderID string     `json:"provider_id,omitempty"`
}

// NewMessage creates a message with a fresh id and the current time.
func NewMessage(sender string, senderType SenderType, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		Sender:     sender,
		SenderType: senderType,
		Content:    content,
		Timestamp:  time.Now(),
	}
}

// NewUserMessage creates a user-authored message.
func NewUserMessage(content string) Message {
	return NewMessage("user", SenderUser, content)
}

// NewAIMessage creates a message authored by the given provider.
func NewAIMessage(providerID, content string) Message {
	m := NewMessage(providerID, SenderAI, content)
	m.ProviderID = providerID
	return m
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool { return m.SenderType == SenderUser }

// AttachmentType is the kind of an attachment.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentDocument AttachmentType = "document"
)

// Attachment is a read-only input file handed to an adapter call.
type Attachment struct {
	Type     AttachmentType `json:"type"`
	URI      string         `json:"uri"`
	MimeType string         `json:"mime_type"`
	Base64   string         `json:"base64,omitempty"`
	FileName string         `json:"file_name,omitempty"`
}

// IsImage reports whether the attachment is an image.
func (a Attachment) IsImage() bool { return a.Type == AttachmentImage }

// IsDocument reports whether the attachment is a document.
func (a Attachment) IsDocument() bool { return a.Type == AttachmentDocument }

// DecodedSize returns the approximate number of bytes the base64 payload
// decodes to. Zero when no payload is carried.
func (a Attachment) DecodedSize() int {
	data := strings.TrimRight(a.Base64, "=")
	if data == "" {
		return 0
	}
	return base64.RawStdEncoding.DecodedLen(len(data))
}
