package domain

import (
	"fmt"
	"strings"
	"time"
)

// ContentType hints how the content of a RawItem was captured.
type ContentType string

// Known content types.
const (
	ContentTypeText            ContentType = "text"
	ContentTypeURL             ContentType = "url"
	ContentTypeVoiceTranscript ContentType = "voice-transcript"
)

// IsValid returns true if the content type is recognised.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeText, ContentTypeURL, ContentTypeVoiceTranscript:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c ContentType) String() string {
	return string(c)
}

// Description returns a human-readable description of the content type.
func (c ContentType) Description() string {
	switch c {
	case ContentTypeText:
		return "Plain text message"
	case ContentTypeURL:
		return "Shared link or web page"
	case ContentTypeVoiceTranscript:
		return "Transcribed voice memo"
	default:
		return unknownDescription
	}
}

// ParseContentType converts a string into a ContentType.
// An empty string defaults to ContentTypeText.
func ParseContentType(s string) (ContentType, error) {
	if s == "" {
		return ContentTypeText, nil
	}
	c := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedType, s)
	}
	return c, nil
}

// RawItem is one inbound unit of content. It is created once per message
// and never modified.
type RawItem struct {
	// Content is the raw message text.
	Content string

	// ContentType hints how the content was captured.
	ContentType ContentType

	// CreatedAt is when the message was received.
	CreatedAt time.Time

	// SourceRef is an opaque reference to the originating message.
	SourceRef string
}

// Validate checks the item can enter the pipeline.
func (r RawItem) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidInput)
	}
	if !r.ContentType.IsValid() {
		return fmt.Errorf("%w: content type %q", ErrUnsupportedType, r.ContentType)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidInput)
	}
	return nil
}
