package database

import "time"

const (
	RoomKindDirect = "direct"
	RoomKindGroup  = "group"
)

const (
	MessageTypeChat            = "message"
	MessageTypeMeetingRequest  = "meeting_request"
	MessageTypeMeetingApproved = "meeting_approved"
	MessageTypeMeetingRejected = "meeting_rejected"
	MessageTypeSystem          = "system"
)

const (
	MeetingStatusPending  = "pending"
	MeetingStatusApproved = "approved"
	MeetingStatusRejected = "rejected"
)

type User struct {
	Id           int
	FirstName    string
	LastName     string
	EmailAddress string
	UserType     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName mirrors the display identity used on the wire.
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

type Room struct {
	Id           int
	Kind         string
	Name         string
	CreatedBy    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []User
}

type Message struct {
	Id              int
	RoomId          int
	SenderId        int
	Content         string
	MessageType     string
	ReplyToId       *int
	MeetingDatetime *time.Time
	MeetingTopic    string
	MeetingStatus   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Sender          User
}

type MeetingRequest struct {
	Id          int
	RequesterId int
	RecipientId int
	RoomId      int
	MessageId   int
	Datetime    time.Time
	Topic       string
	Description string
	Status      string
	MeetingLink string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Requester   User
	Recipient   User
}

type TypingIndicator struct {
	RoomId    int
	UserId    int
	IsTyping  bool
	UpdatedAt time.Time
}

type UserStreak struct {
	Id               int
	UserId           int
	CurrentStreak    int
	LongestStreak    int
	LastActivityDate *time.Time
	StreakStartDate  *time.Time
	IsPremium        bool
	PremiumExpiresAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type ActivityLog struct {
	Id           int
	UserId       int
	ActivityType string
	Description  string
	Metadata     map[string]any
	CreatedAt    time.Time
}

type CreateAccountParams struct {
	FirstName    string
	LastName     string
	EmailAddress string
	UserType     string
	PasswordHash string
}

type CreateMessageParams struct {
	RoomId          int
	SenderId        int
	Content         string
	MessageType     string
	ReplyToId       *int
	MeetingDatetime *time.Time
	MeetingTopic    string
	MeetingStatus   string
}

type CreateMeetingRequestParams struct {
	RequesterId int
	RecipientId int
	RoomId      int
	MessageId   int
	Datetime    time.Time
	Topic       string
	Description string
}
