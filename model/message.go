package model

// Message is the document stored at Users/<phoneNumber>/messages/<id>.
// The same document is written under both the sender's and the recipient's
// collection at the same id. ID and Replies are filled in on fetch from the
// node key and the replies child collection; they are not part of the stored
// document.
type Message struct {
	ID        string  `json:"id,omitempty"`
	To        string  `json:"to"`
	From      string  `json:"from"`
	Message   string  `json:"message"`
	ImageURL  *string `json:"imageUrl"`
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type,omitempty"`
	Replies   []Reply `json:"replies,omitempty"`
}

// Reply lives at Users/<phoneNumber>/messages/<id>/replies/<replyId> and has
// no lifecycle of its own.
type Reply struct {
	ID        string  `json:"id,omitempty"`
	Sender    string  `json:"sender"`
	Text      string  `json:"text"`
	ImageURL  *string `json:"imageUrl,omitempty"`
	Timestamp string  `json:"timestamp"`
}

const (
	MessageTypeClient = "client"
	MessageTypeAdmin  = "admin"
)

// UserMessages pairs a user id with their full message collection, as served
// by the admin surface.
type UserMessages struct {
	PhoneNumber string    `json:"phoneNumber"`
	Messages    []Message `json:"messages"`
}
