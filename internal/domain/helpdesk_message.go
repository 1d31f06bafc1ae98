package domain

import (
	"strings"
	"time"
)

// MessageAuthorType indicates which side of the conversation wrote a message.
type MessageAuthorType string

const (
	AuthorTypeUser    MessageAuthorType = "user"
	AuthorTypeSupport MessageAuthorType = "support"
)

// RequiredRole is the user role an author must hold to write as t.
func (t MessageAuthorType) RequiredRole() (UserRole, bool) {
	switch t {
	case AuthorTypeUser:
		return UserRoleClient, true
	case AuthorTypeSupport:
		return UserRoleDeveloper, true
	}
	return "", false
}

// MessageTimeLayout is the ISO-8601 layout used for message timestamps. The fraction is fixed at
// nanosecond width so a stored timestamp never falls before the instant it was taken and names
// built from it still sort chronologically.
const MessageTimeLayout = "2006-01-02T15:04:05.000000000Z"

// HelpdeskMessage is one bucket-resident thread entry, stored as a JSON object.
type HelpdeskMessage struct {
	AuthorID    string            `json:"authorId"`
	AuthorType  MessageAuthorType `json:"authorType"`
	Message     string            `json:"message"`
	Attachments []string          `json:"attachments,omitempty"`
	CreatedAt   string            `json:"createdAt"`
}

// FormatMessageTime renders t the way message timestamps are stored.
func FormatMessageTime(t time.Time) string {
	return t.UTC().Format(MessageTimeLayout)
}

var fileNameSanitizer = strings.NewReplacer(":", "-", ".", "-")

// MessageFileName builds the object name for a message. The zero-padded timestamp prefix makes
// lexicographic order match write order.
func MessageFileName(createdAt time.Time, authorType MessageAuthorType, authorID string) string {
	return fileNameSanitizer.Replace(FormatMessageTime(createdAt)) + "_" + string(authorType) + "_" + authorID + ".json"
}

// Valid reports whether t is a known author type.
func (t MessageAuthorType) Valid() bool {
	_, ok := t.RequiredRole()
	return ok
}
