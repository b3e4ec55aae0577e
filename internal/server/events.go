package server

import (
	"strings"

	"github.com/alumninet/chatserver/internal/database"
	"github.com/alumninet/chatserver/internal/types"
)

// EventType is the closed set of inbound frame kinds. Routing switches on
// it exhaustively; anything else is answered with an error frame.
type EventType string

const (
	EventMessage         EventType = "message"
	EventTyping          EventType = "typing"
	EventMeetingRequest  EventType = "meeting_request"
	EventMeetingApproval EventType = "meeting_approval"
	EventReadReceipt     EventType = "read_receipt"
)

// ClientEvent is one inbound frame. Which fields are required depends on
// the event type.
type ClientEvent struct {
	Type      EventType `json:"type"`
	ToUser    int       `json:"to_user,omitempty"`
	Content   string    `json:"content,omitempty"`
	IsTyping  *bool     `json:"is_typing,omitempty"`
	Datetime  string    `json:"datetime,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	MeetingId int       `json:"meeting_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	MessageId int       `json:"message_id,omitempty"`
}

const (
	FrameMessage         = "message"
	FrameTyping          = "typing"
	FrameMeetingRequest  = "meeting_request"
	FrameMeetingResponse = "meeting_response"
	FrameError           = "error"
)

// ServerFrame is one outbound frame.
type ServerFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	// Message carries the text of an error frame.
	Message string `json:"message,omitempty"`
}

type typingPayload struct {
	UserId   int    `json:"user_id"`
	UserName string `json:"user_name"`
	IsTyping bool   `json:"is_typing"`
}

type meetingPayload struct {
	Message        types.Message        `json:"message"`
	MeetingRequest types.MeetingRequest `json:"meeting_request"`
}

func messageFrame(msg types.Message) *ServerFrame {
	return &ServerFrame{
		Type: FrameMessage,
		Data: msg,
	}
}

func typingFrame(userId int, userName string, isTyping bool) *ServerFrame {
	return &ServerFrame{
		Type: FrameTyping,
		Data: typingPayload{
			UserId:   userId,
			UserName: userName,
			IsTyping: isTyping,
		},
	}
}

func meetingRequestFrame(msg types.Message, mr types.MeetingRequest) *ServerFrame {
	return &ServerFrame{
		Type: FrameMeetingRequest,
		Data: meetingPayload{
			Message:        msg,
			MeetingRequest: mr,
		},
	}
}

func meetingResponseFrame(msg types.Message, mr types.MeetingRequest) *ServerFrame {
	return &ServerFrame{
		Type: FrameMeetingResponse,
		Data: meetingPayload{
			Message:        msg,
			MeetingRequest: mr,
		},
	}
}

func errorFrame(message string) *ServerFrame {
	return &ServerFrame{
		Type:    FrameError,
		Message: message,
	}
}

// SerializeMessage converts a stored message to its wire shape. Meeting
// data rides along only for meeting message types.
func SerializeMessage(msg database.Message) types.Message {
	m := types.Message{
		Id: msg.Id,
		Sender: types.UserRef{
			Id:    msg.Sender.Id,
			Name:  msg.Sender.FullName(),
			Email: msg.Sender.EmailAddress,
		},
		Content:     msg.Content,
		MessageType: msg.MessageType,
		CreatedAt:   msg.CreatedAt,
	}

	if strings.HasPrefix(msg.MessageType, "meeting") {
		m.MeetingData = &types.MeetingData{
			Datetime: msg.MeetingDatetime,
			Topic:    msg.MeetingTopic,
			Status:   msg.MeetingStatus,
		}
	}

	return m
}

func SerializeMeetingRequest(mr database.MeetingRequest) types.MeetingRequest {
	return types.MeetingRequest{
		Id: mr.Id,
		Requester: types.UserRef{
			Id:   mr.Requester.Id,
			Name: mr.Requester.FullName(),
		},
		Recipient: types.UserRef{
			Id:   mr.Recipient.Id,
			Name: mr.Recipient.FullName(),
		},
		Datetime:    mr.Datetime,
		Topic:       mr.Topic,
		Status:      mr.Status,
		MeetingLink: mr.MeetingLink,
		CreatedAt:   mr.CreatedAt,
	}
}
