// Package validation sanitizes and validates client-supplied chat input.
//
// All functions are pure. Errors are sentinels whose messages are safe to
// show to the end user.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Limits bounds client input.
type Limits struct {
	MaxMessageLength  int
	UsernameMinLength int
	UsernameMaxLength int
	MaxRoomIDLength   int
	MaxFileSize       int64
	AllowedFileTypes  []string
}

// DefaultAllowedFileTypes is the MIME whitelist for shared files.
var DefaultAllowedFileTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{
		MaxMessageLength:  1000,
		UsernameMinLength: 2,
		UsernameMaxLength: 50,
		MaxRoomIDLength:   100,
		MaxFileSize:       10 * 1024 * 1024,
		AllowedFileTypes:  append([]string(nil), DefaultAllowedFileTypes...),
	}
}

var (
	ErrMessageRequired  = errors.New("Message is required")
	ErrMessageEmpty     = errors.New("Message cannot be empty")
	ErrMessageTooLong   = errors.New("Message is too long")
	ErrUsernameTooShort = errors.New("Username is too short")
	ErrUsernameTooLong  = errors.New("Username is too long")
	ErrRoomIDRequired   = errors.New("Room ID is required")
	ErrRoomIDTooLong    = errors.New("Room ID is too long")
	ErrRoomIDInvalid    = errors.New("Room ID can only contain letters, numbers, underscores, and hyphens")
	ErrFileInvalid      = errors.New("Invalid file data")
	ErrFileTooLarge     = errors.New("File too large")
	ErrFileTypeDenied   = errors.New("File type not allowed")
)

var roomIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var htmlReplacer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize escapes markup-significant characters and trims surrounding
// whitespace.
func Sanitize(input string) string {
	return strings.TrimSpace(htmlReplacer.Replace(input))
}

// Message checks raw message text before sanitization.
func (l Limits) Message(text string) error {
	if text == "" {
		return ErrMessageRequired
	}
	if strings.TrimSpace(text) == "" {
		return ErrMessageEmpty
	}
	if utf8.RuneCountInString(text) > l.MaxMessageLength {
		return fmt.Errorf("%w (max %d characters)", ErrMessageTooLong, l.MaxMessageLength)
	}
	return nil
}

// Username sanitizes name and checks the result against the length bounds.
func (l Limits) Username(name string) (string, error) {
	clean := Sanitize(name)
	n := utf8.RuneCountInString(clean)
	if n < l.UsernameMinLength {
		return "", fmt.Errorf("%w (min %d characters)", ErrUsernameTooShort, l.UsernameMinLength)
	}
	if n > l.UsernameMaxLength {
		return "", fmt.Errorf("%w (max %d characters)", ErrUsernameTooLong, l.UsernameMaxLength)
	}
	return clean, nil
}

// RoomID checks a room identifier.
func (l Limits) RoomID(id string) error {
	if id == "" {
		return ErrRoomIDRequired
	}
	if len(id) > l.MaxRoomIDLength {
		return ErrRoomIDTooLong
	}
	if !roomIDPattern.MatchString(id) {
		return ErrRoomIDInvalid
	}
	return nil
}

// File checks shared-file metadata.
func (l Limits) File(name, mimeType string, size int64) error {
	if strings.TrimSpace(name) == "" || mimeType == "" || size <= 0 {
		return ErrFileInvalid
	}
	if size > l.MaxFileSize {
		return ErrFileTooLarge
	}
	for _, allowed := range l.AllowedFileTypes {
		if strings.EqualFold(allowed, mimeType) {
			return nil
		}
	}
	return ErrFileTypeDenied
}
