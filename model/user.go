package model

// User is the document stored at Users/<phoneNumber>.
//
// Password holds whatever the configured credential scheme produced; with the
// plain scheme that is the shared secret itself, kept for compatibility with
// existing clients.
type User struct {
	PhoneNumber    string `json:"phoneNumber"`
	Password       string `json:"password"`
	OnlineStatus   string `json:"onlineStatus"`
	LastSeen       *int64 `json:"lastSeen"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Role           string `json:"role,omitempty"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)
