package domain

// Conversation is never stored: it is derived from the messages exchanged
// between two users.
type ConversationSummary struct {
	CounterpartID string  `json:"counterpartId"`
	LastMessage   Message `json:"lastMessage"`
	UnreadCount   int     `json:"unreadCount"`
}

// Participants returns both user ids in a stable order, whatever the direction.
func Participants(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}
