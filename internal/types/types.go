package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	EmailAddress string    `json:"email,omitempty"`
	UserType     string    `json:"user_type,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// FullName joins first and last name the way the chat wire format
// presents a sender.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// UserRef is the compact identity embedded in serialized messages.
type UserRef struct {
	Id    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type MeetingData struct {
	Datetime *time.Time `json:"datetime"`
	Topic    string     `json:"topic"`
	Status   string     `json:"status"`
}

type Message struct {
	Id          int          `json:"id"`
	Sender      UserRef      `json:"sender"`
	Content     string       `json:"content"`
	MessageType string       `json:"message_type"`
	CreatedAt   time.Time    `json:"created_at"`
	MeetingData *MeetingData `json:"meeting_data"`
}

type MeetingRequest struct {
	Id          int       `json:"id"`
	Requester   UserRef   `json:"requester"`
	Recipient   UserRef   `json:"recipient"`
	Datetime    time.Time `json:"datetime"`
	Topic       string    `json:"topic"`
	Status      string    `json:"status"`
	MeetingLink string    `json:"meeting_link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Room struct {
	Id           int          `json:"id"`
	Kind         string       `json:"room_type"`
	Name         string       `json:"name,omitempty"`
	Participants []UserRef    `json:"participants"`
	LastMessage  *LastMessage `json:"last_message"`
	UnreadCount  int          `json:"unread_count"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type LastMessage struct {
	Id          int       `json:"id"`
	Content     string    `json:"content"`
	Sender      string    `json:"sender"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type Streak struct {
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	LastActivityDate string     `json:"last_activity_date,omitempty"`
	StreakStartDate  string     `json:"streak_start_date,omitempty"`
	IsPremium        bool       `json:"is_premium"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at,omitempty"`
}

type ActivityLogEntry struct {
	Id           int            `json:"id"`
	ActivityType string         `json:"activity_type"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
