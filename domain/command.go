package domain

// SendMessageCommand carries a sendMessage request once the sender identity
// has been bound from the authenticated connection.
type SendMessageCommand struct {
	SenderID      string
	ReceiverID    string
	Text          string
	CorrelationID string
}

// MarkReadCommand marks everything CounterpartID sent to ViewerID as read.
type MarkReadCommand struct {
	ViewerID      string
	CounterpartID string
}

type GetHistoryCommand struct {
	ViewerID      string
	CounterpartID string
	Cursor        *string
	Limit         int
}

type SearchCommand struct {
	ViewerID      string
	CounterpartID string
	Terms         string
	Limit         int
}
