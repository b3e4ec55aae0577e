package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alumninet/chatserver/internal/database"
	"github.com/alumninet/chatserver/internal/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type wsFrame struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func dialWs(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func writeEvent(t *testing.T, conn *websocket.Conn, event map[string]any) {
	t.Helper()

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	assert.NoError(t, conn.WriteJSON(event))
}

// awaitReady round-trips an unknown frame so the test knows the server's
// read pump is running and the connection is registered.
func awaitReady(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	writeEvent(t, conn, map[string]any{"type": "ready_probe"})
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "Unknown message type", frame.Message)
}

// expectUserActivity covers the repository calls made when a connection
// registers and records activity. The streak already covers today so
// nothing is persisted.
func expectUserActivity(db *database.MockAlumniRepository, userId int) {
	today := time.Now().UTC()
	db.On("GetUserStreak", userId).Return(database.UserStreak{
		UserId:           userId,
		CurrentStreak:    1,
		LongestStreak:    1,
		LastActivityDate: &today,
	}, nil)
	db.On("CreateActivityLog", mock.Anything).Return(nil)
}

func TestServeWsUnauthorized(t *testing.T) {
	assertClosedUnauthorized := func(t *testing.T, conn *websocket.Conn) {
		t.Helper()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()

		var closeErr *websocket.CloseError
		if assert.ErrorAs(t, err, &closeErr) {
			assert.Equal(t, CloseUnauthorized, closeErr.Code)
		}
	}

	t.Run("missing token", func(t *testing.T) {
		db := &database.MockAlumniRepository{}
		s := newTestApp(t, db)
		ts := httptest.NewServer(s.mux.Handler)
		defer ts.Close()

		assertClosedUnauthorized(t, dialWs(t, ts, ""))
	})

	t.Run("invalid token", func(t *testing.T) {
		db := &database.MockAlumniRepository{}
		s := newTestApp(t, db)
		ts := httptest.NewServer(s.mux.Handler)
		defer ts.Close()

		assertClosedUnauthorized(t, dialWs(t, ts, "bogus"))
	})

	t.Run("token for a deleted account", func(t *testing.T) {
		db := &database.MockAlumniRepository{}
		db.On("GetAccountById", 1).Return(database.User{}, database.ErrNotFound)
		s := newTestApp(t, db)
		ts := httptest.NewServer(s.mux.Handler)
		defer ts.Close()

		token, err := s.createJwtForSession(types.User{Id: 1}, time.Hour)
		assert.NoError(t, err)

		assertClosedUnauthorized(t, dialWs(t, ts, token))
	})
}

func TestServeWsMessageRelay(t *testing.T) {
	db := &database.MockAlumniRepository{}
	s := newTestApp(t, db)
	ts := httptest.NewServer(s.mux.Handler)
	defer ts.Close()

	ada := database.User{Id: 1, FirstName: "Ada", LastName: "Lovelace"}
	grace := database.User{Id: 2, FirstName: "Grace", LastName: "Hopper"}

	db.On("GetAccountById", 1).Return(ada, nil)
	db.On("GetAccountById", 2).Return(grace, nil)
	expectUserActivity(db, 1)
	expectUserActivity(db, 2)

	db.On("GetOrCreateDirectRoom", 1, 2, 1).Return(database.Room{Id: 5, Kind: database.RoomKindDirect}, nil)
	db.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
		return p.RoomId == 5 && p.SenderId == 1 && p.Content == "hi" &&
			p.MessageType == database.MessageTypeChat
	})).Return(database.Message{
		Id:          9,
		RoomId:      5,
		SenderId:    1,
		Content:     "hi",
		MessageType: database.MessageTypeChat,
		Sender:      ada,
	}, nil)

	adaToken, err := s.createJwtForSession(types.User{Id: 1}, time.Hour)
	assert.NoError(t, err)
	graceToken, err := s.createJwtForSession(types.User{Id: 2}, time.Hour)
	assert.NoError(t, err)

	adaConn := dialWs(t, ts, adaToken)
	graceConn := dialWs(t, ts, graceToken)
	awaitReady(t, adaConn)
	awaitReady(t, graceConn)

	writeEvent(t, adaConn, map[string]any{"type": "message", "to_user": 2, "content": "hi"})

	for _, conn := range []*websocket.Conn{adaConn, graceConn} {
		frame := readFrame(t, conn)
		assert.Equal(t, "message", frame.Type)

		var msg types.Message
		assert.NoError(t, json.Unmarshal(frame.Data, &msg))
		assert.Equal(t, 9, msg.Id)
		assert.Equal(t, "hi", msg.Content)
		assert.Equal(t, "Ada Lovelace", msg.Sender.Name)
	}

	db.AssertExpectations(t)
}

func TestServeWsMeetingFlow(t *testing.T) {
	db := &database.MockAlumniRepository{}
	s := newTestApp(t, db)
	ts := httptest.NewServer(s.mux.Handler)
	defer ts.Close()

	ada := database.User{Id: 1, FirstName: "Ada"}
	grace := database.User{Id: 2, FirstName: "Grace"}
	when := time.Date(2026, time.September, 3, 15, 0, 0, 0, time.UTC)

	db.On("GetAccountById", 1).Return(ada, nil)
	db.On("GetAccountById", 2).Return(grace, nil)
	expectUserActivity(db, 1)
	expectUserActivity(db, 2)

	db.On("GetOrCreateDirectRoom", 1, 2, 1).Return(database.Room{Id: 5}, nil)
	db.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
		return p.MessageType == database.MessageTypeMeetingRequest
	})).Return(database.Message{
		Id:              9,
		RoomId:          5,
		MessageType:     database.MessageTypeMeetingRequest,
		MeetingDatetime: &when,
		MeetingTopic:    "Catch up",
		MeetingStatus:   database.MeetingStatusPending,
		Sender:          ada,
	}, nil)

	pending := database.MeetingRequest{
		Id:          3,
		RequesterId: 1,
		RecipientId: 2,
		RoomId:      5,
		MessageId:   9,
		Datetime:    when,
		Topic:       "Catch up",
		Status:      database.MeetingStatusPending,
		Requester:   ada,
		Recipient:   grace,
	}
	db.On("CreateMeetingRequest", mock.Anything).Return(pending, nil)

	approved := pending
	approved.Status = database.MeetingStatusApproved
	approved.MeetingLink = "https://meet.alumninet.io/abc123"
	db.On("UpdateMeetingStatus", 3, database.MeetingStatusApproved, mock.AnythingOfType("string")).
		Return(approved, nil)
	db.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
		return p.MessageType == database.MessageTypeMeetingApproved
	})).Return(database.Message{
		Id:              10,
		RoomId:          5,
		MessageType:     database.MessageTypeMeetingApproved,
		MeetingDatetime: &when,
		MeetingTopic:    "Catch up",
		MeetingStatus:   database.MeetingStatusApproved,
		Sender:          grace,
	}, nil)

	adaToken, err := s.createJwtForSession(types.User{Id: 1}, time.Hour)
	assert.NoError(t, err)
	graceToken, err := s.createJwtForSession(types.User{Id: 2}, time.Hour)
	assert.NoError(t, err)

	adaConn := dialWs(t, ts, adaToken)
	graceConn := dialWs(t, ts, graceToken)
	awaitReady(t, adaConn)
	awaitReady(t, graceConn)

	writeEvent(t, adaConn, map[string]any{
		"type":     "meeting_request",
		"to_user":  2,
		"topic":    "Catch up",
		"datetime": when.Format(time.RFC3339),
	})

	type meetingFramePayload struct {
		Message        types.Message        `json:"message"`
		MeetingRequest types.MeetingRequest `json:"meeting_request"`
	}

	for _, conn := range []*websocket.Conn{adaConn, graceConn} {
		frame := readFrame(t, conn)
		assert.Equal(t, "meeting_request", frame.Type)

		var payload meetingFramePayload
		assert.NoError(t, json.Unmarshal(frame.Data, &payload))
		assert.Equal(t, 3, payload.MeetingRequest.Id)
		assert.Equal(t, database.MeetingStatusPending, payload.MeetingRequest.Status)
	}

	db.On("GetMeetingRequestById", 3).Return(pending, nil)

	writeEvent(t, graceConn, map[string]any{
		"type":       "meeting_approval",
		"meeting_id": 3,
		"status":     "approved",
	})

	for _, conn := range []*websocket.Conn{adaConn, graceConn} {
		frame := readFrame(t, conn)
		assert.Equal(t, "meeting_response", frame.Type)

		var payload meetingFramePayload
		assert.NoError(t, json.Unmarshal(frame.Data, &payload))
		assert.Equal(t, database.MeetingStatusApproved, payload.MeetingRequest.Status)
		assert.Equal(t, "https://meet.alumninet.io/abc123", payload.MeetingRequest.MeetingLink)
	}
}

func TestServeWsMalformedJson(t *testing.T) {
	db := &database.MockAlumniRepository{}
	s := newTestApp(t, db)
	ts := httptest.NewServer(s.mux.Handler)
	defer ts.Close()

	db.On("GetAccountById", 1).Return(database.User{Id: 1, FirstName: "Ada"}, nil)
	expectUserActivity(db, 1)

	token, err := s.createJwtForSession(types.User{Id: 1}, time.Hour)
	assert.NoError(t, err)

	conn := dialWs(t, ts, token)
	awaitReady(t, conn)

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "Invalid JSON", frame.Message)

	// the connection survives a bad frame
	awaitReady(t, conn)
}
