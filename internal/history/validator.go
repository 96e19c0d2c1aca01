package history

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxMessageBytes = 4096 // max payload size accepted for one message
	MaxTextChars    = 2000 // max character count
)

// ValidateMessage checks that a chat message meets content requirements
// before it is persisted. The real-time relay never re-validates; rejection
// happens here, at the REST boundary.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is empty")
	}
	if len(text) > MaxMessageBytes {
		return fmt.Errorf("message exceeds %d byte limit", MaxMessageBytes)
	}
	if utf8.RuneCountInString(text) > MaxTextChars {
		return fmt.Errorf("message exceeds %d character limit", MaxTextChars)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("message contains invalid UTF-8")
	}
	return nil
}
