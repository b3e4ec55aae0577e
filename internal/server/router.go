package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/alumninet/chatserver/internal/database"
	"github.com/alumninet/chatserver/internal/streak"
)

// route dispatches one inbound frame. Faults are contained here: a
// failing or panicking handler answers the sender with an error frame and
// the connection lives on.
func (cs *ChatServer) route(c *Client, event *ClientEvent) {
	defer func() {
		if r := recover(); r != nil {
			cs.log.Printf("panic handling %q frame from user %d: %v", event.Type, c.user.Id, r)
			c.queueFrame(errorFrame("Internal server error"))
		}
	}()

	switch event.Type {
	case EventMessage:
		cs.handleMessage(c, event)
	case EventTyping:
		cs.handleTyping(c, event)
	case EventMeetingRequest:
		cs.handleMeetingRequest(c, event)
	case EventMeetingApproval:
		cs.handleMeetingApproval(c, event)
	case EventReadReceipt:
		cs.handleReadReceipt(c, event)
	default:
		c.queueFrame(errorFrame("Unknown message type"))
	}
}

// directRoomWith resolves the direct room between the sender and another
// user, verifying the peer exists first.
func (cs *ChatServer) directRoomWith(c *Client, toUser int) (database.Room, error) {
	if _, err := cs.db.GetAccountById(toUser); err != nil {
		return database.Room{}, fmt.Errorf("lookup user %d: %w", toUser, err)
	}

	room, err := cs.db.GetOrCreateDirectRoom(c.user.Id, toUser, c.user.Id)
	if err != nil {
		return database.Room{}, fmt.Errorf("resolve room: %w", err)
	}

	return room, nil
}

func (cs *ChatServer) handleMessage(c *Client, event *ClientEvent) {
	if event.ToUser == 0 || event.Content == "" {
		c.queueFrame(errorFrame("Missing required fields"))
		return
	}

	room, err := cs.directRoomWith(c, event.ToUser)
	if err != nil {
		cs.replyError(c, err)
		return
	}

	msg, err := cs.db.CreateMessage(database.CreateMessageParams{
		RoomId:      room.Id,
		SenderId:    c.user.Id,
		Content:     event.Content,
		MessageType: database.MessageTypeChat,
	})
	if err != nil {
		cs.log.Println("create message:", err)
		c.queueFrame(errorFrame("Internal server error"))
		return
	}

	frame := messageFrame(SerializeMessage(msg))
	cs.SendToUser(event.ToUser, frame)
	cs.SendToUser(c.user.Id, frame)

	cs.stats.Incr(metricMessagesSent)
	cs.streaks.RecordActivity(c.user.Id, streak.ActivityMessageSent, "Sent a chat message", map[string]any{
		"room_id": room.Id,
	})
}

func (cs *ChatServer) handleTyping(c *Client, event *ClientEvent) {
	if event.ToUser == 0 || event.IsTyping == nil {
		c.queueFrame(errorFrame("Missing to_user field"))
		return
	}

	room, err := cs.directRoomWith(c, event.ToUser)
	if err != nil {
		cs.replyError(c, err)
		return
	}

	if err := cs.db.UpsertTypingIndicator(room.Id, c.user.Id, *event.IsTyping); err != nil {
		cs.log.Println("upsert typing indicator:", err)
		c.queueFrame(errorFrame("Internal server error"))
		return
	}

	// typing indicators go to the peer only, never echoed
	cs.SendToUser(event.ToUser, typingFrame(c.user.Id, c.user.FullName(), *event.IsTyping))
}

func (cs *ChatServer) handleMeetingRequest(c *Client, event *ClientEvent) {
	if event.ToUser == 0 || event.Datetime == "" || event.Topic == "" {
		c.queueFrame(errorFrame("Missing required fields for meeting request"))
		return
	}

	datetime, err := time.Parse(time.RFC3339, event.Datetime)
	if err != nil {
		c.queueFrame(errorFrame("Invalid datetime format"))
		return
	}

	room, err := cs.directRoomWith(c, event.ToUser)
	if err != nil {
		cs.replyError(c, err)
		return
	}

	msg, err := cs.db.CreateMessage(database.CreateMessageParams{
		RoomId:          room.Id,
		SenderId:        c.user.Id,
		Content:         "Meeting request: " + event.Topic,
		MessageType:     database.MessageTypeMeetingRequest,
		MeetingDatetime: &datetime,
		MeetingTopic:    event.Topic,
		MeetingStatus:   database.MeetingStatusPending,
	})
	if err != nil {
		cs.log.Println("create meeting request message:", err)
		c.queueFrame(errorFrame("Internal server error"))
		return
	}

	meeting, err := cs.db.CreateMeetingRequest(database.CreateMeetingRequestParams{
		RequesterId: c.user.Id,
		RecipientId: event.ToUser,
		RoomId:      room.Id,
		MessageId:   msg.Id,
		Datetime:    datetime,
		Topic:       event.Topic,
	})
	if err != nil {
		cs.log.Println("create meeting request:", err)
		c.queueFrame(errorFrame("Internal server error"))
		return
	}

	frame := meetingRequestFrame(SerializeMessage(msg), SerializeMeetingRequest(meeting))
	cs.SendToUser(event.ToUser, frame)
	cs.SendToUser(c.user.Id, frame)

	cs.stats.Incr(metricMeetingRequests)
}

func (cs *ChatServer) handleMeetingApproval(c *Client, event *ClientEvent) {
	if event.MeetingId == 0 ||
		(event.Status != database.MeetingStatusApproved && event.Status != database.MeetingStatusRejected) {
		c.queueFrame(errorFrame("Invalid meeting approval data"))
		return
	}

	meeting, err := cs.db.GetMeetingRequestById(event.MeetingId)
	if err != nil {
		cs.replyError(c, err)
		return
	}

	if meeting.RecipientId != c.user.Id {
		c.queueFrame(errorFrame("Only the recipient can respond to a meeting request"))
		return
	}

	var meetingLink string
	if event.Status == database.MeetingStatusApproved {
		slug, err := cs.genMeetingSlug()
		if err != nil {
			cs.log.Println("generate meeting slug:", err)
		} else {
			meetingLink = "https://meet.alumninet.io/" + slug
		}
	}

	updated, err := cs.db.UpdateMeetingStatus(meeting.Id, event.Status, meetingLink)
	if err != nil {
		cs.replyError(c, err)
		return
	}

	msg, err := cs.db.CreateMessage(database.CreateMessageParams{
		RoomId:          updated.RoomId,
		SenderId:        c.user.Id,
		Content:         fmt.Sprintf("Meeting %s: %s", event.Status, updated.Topic),
		MessageType:     "meeting_" + event.Status,
		MeetingDatetime: &updated.Datetime,
		MeetingTopic:    updated.Topic,
		MeetingStatus:   event.Status,
	})
	if err != nil {
		cs.log.Println("create meeting response message:", err)
		c.queueFrame(errorFrame("Internal server error"))
		return
	}

	frame := meetingResponseFrame(SerializeMessage(msg), SerializeMeetingRequest(updated))
	cs.SendToUser(updated.RequesterId, frame)
	cs.SendToUser(updated.RecipientId, frame)
}

func (cs *ChatServer) handleReadReceipt(c *Client, event *ClientEvent) {
	if event.MessageId == 0 {
		c.queueFrame(errorFrame("Missing message_id"))
		return
	}

	// idempotent, and no fan-out on success
	if err := cs.db.MarkMessageRead(event.MessageId, c.user.Id); err != nil {
		cs.replyError(c, err)
	}
}

// replyError maps a repository error to the error frame the sender sees.
func (cs *ChatServer) replyError(c *Client, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.queueFrame(errorFrame("Not found"))
	case errors.Is(err, database.ErrMeetingClosed):
		c.queueFrame(errorFrame("Meeting request already resolved"))
	default:
		cs.log.Println("handler error:", err)
		c.queueFrame(errorFrame("Internal server error"))
	}
}
