package chatbot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache keys and lifetimes used by the chat pipeline
const (
	PersonaKey          = "english_teacher_prompt"
	ConnectionStatusKey = "gemini_connection_status"
	GuestUserKey        = "test_user_id"

	HistoryTTL           = 5 * time.Minute
	PersonaTTL           = time.Hour
	ResponseTTL          = 10 * time.Minute
	ConnectionSuccessTTL = 5 * time.Minute
	ConnectionFailureTTL = time.Minute
	GuestUserTTL         = time.Hour
)

// HistoryKey changes whenever the session is touched, so stale history
// is never served after a new message.
func HistoryKey(sessionID uint, updatedAt time.Time) string {
	return fmt.Sprintf("chat_history_%d_%d", sessionID, updatedAt.UnixNano())
}

// ResponseKey identifies the reply to an identical raw message in a session
func ResponseKey(sessionID uint, message string) string {
	sum := sha256.Sum256([]byte(message))
	return fmt.Sprintf("response_%d_%s", sessionID, hex.EncodeToString(sum[:])[:16])
}
