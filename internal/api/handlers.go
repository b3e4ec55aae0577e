package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/alumninet/chatserver/internal/database"
	"github.com/alumninet/chatserver/internal/server"
	"github.com/alumninet/chatserver/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	UserType  string `json:"user_type"`
	Password  string `json:"password"`
}

func (s *AlumniChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *AlumniChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func serializeUser(user database.User) types.User {
	return types.User{
		Id:           user.Id,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		EmailAddress: user.EmailAddress,
		UserType:     user.UserType,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func (s *AlumniChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.FirstName == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.db.CreateAccount(database.CreateAccountParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		EmailAddress: req.Email,
		UserType:     req.UserType,
		PasswordHash: pwdHash,
	})
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrConflict) {
			errResp = NewConflictError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, serializeUser(newUser))
}

func (s *AlumniChatApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, serializeUser(user))
}

func (s *AlumniChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := serializeUser(dbUser)

	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	// the token also rides in the body so clients can pass it as the
	// websocket's token query parameter
	s.writeJson(w, http.StatusOK, LoginResponse{User: u, Token: token})
}

func (s *AlumniChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *AlumniChatApp) getRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRooms, err := s.db.ListRoomsForUser(userId)
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, dbRoom := range dbRooms {
		room := types.Room{
			Id:        dbRoom.Id,
			Kind:      dbRoom.Kind,
			Name:      dbRoom.Name,
			CreatedAt: dbRoom.CreatedAt,
			UpdatedAt: dbRoom.UpdatedAt,
		}

		for _, p := range dbRoom.Participants {
			room.Participants = append(room.Participants, types.UserRef{
				Id:    p.Id,
				Name:  p.FullName(),
				Email: p.EmailAddress,
			})
		}

		last, err := s.db.GetMessages(dbRoom.Id, 0, 1)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		if len(last) > 0 {
			room.LastMessage = &types.LastMessage{
				Id:          last[0].Id,
				Content:     last[0].Content,
				Sender:      last[0].Sender.FullName(),
				MessageType: last[0].MessageType,
				CreatedAt:   last[0].CreatedAt,
			}
		}

		if room.UnreadCount, err = s.db.UnreadCount(dbRoom.Id, userId); err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		rooms = append(rooms, room)
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *AlumniChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := strconv.Atoi(r.URL.Query().Get("room_id"))
	if err != nil || roomId <= 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.IsRoomParticipant(roomId, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var before, limit int
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		if before, err = strconv.Atoi(beforeStr); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbMessages, err := s.db.GetMessages(roomId, before, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, msg := range dbMessages {
		messages = append(messages, server.SerializeMessage(msg))
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *AlumniChatApp) getMeetingRequests(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbMeetings, err := s.db.ListMeetingRequests(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	meetings := make([]types.MeetingRequest, 0, len(dbMeetings))
	for _, mr := range dbMeetings {
		meetings = append(meetings, server.SerializeMeetingRequest(mr))
	}

	s.writeJson(w, http.StatusOK, meetings)
}

func (s *AlumniChatApp) approveMeetingRequest(w http.ResponseWriter, r *http.Request) {
	s.respondMeetingRequest(w, r, database.MeetingStatusApproved)
}

func (s *AlumniChatApp) rejectMeetingRequest(w http.ResponseWriter, r *http.Request) {
	s.respondMeetingRequest(w, r, database.MeetingStatusRejected)
}

func (s *AlumniChatApp) respondMeetingRequest(w http.ResponseWriter, r *http.Request, status string) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	meetingId, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || meetingId <= 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	meeting, err := s.db.GetMeetingRequestById(meetingId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if meeting.RecipientId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var meetingLink string
	if status == database.MeetingStatusApproved {
		slug, err := s.generateMeetingSlug()
		if err != nil {
			s.log.Println("generate meeting slug:", err)
		} else {
			meetingLink = "https://meet.alumninet.io/" + slug
		}
	}

	updated, err := s.db.UpdateMeetingStatus(meeting.Id, status, meetingLink)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, database.ErrNotFound):
			errResp = NewNotFoundError()
		case errors.Is(err, database.ErrMeetingClosed):
			errResp = NewConflictError()
		default:
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, server.SerializeMeetingRequest(updated))
}

func (s *AlumniChatApp) getStreak(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbStreak, err := s.db.GetUserStreak(userId)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	streak := types.Streak{
		CurrentStreak:    dbStreak.CurrentStreak,
		LongestStreak:    dbStreak.LongestStreak,
		IsPremium:        dbStreak.IsPremium,
		PremiumExpiresAt: dbStreak.PremiumExpiresAt,
	}
	if dbStreak.LastActivityDate != nil {
		streak.LastActivityDate = dbStreak.LastActivityDate.Format("2006-01-02")
	}
	if dbStreak.StreakStartDate != nil {
		streak.StreakStartDate = dbStreak.StreakStartDate.Format("2006-01-02")
	}

	s.writeJson(w, http.StatusOK, streak)
}

func (s *AlumniChatApp) getActivityLog(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		if limit, err = strconv.Atoi(limitStr); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbEntries, err := s.db.ListActivityLog(userId, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	entries := make([]types.ActivityLogEntry, 0, len(dbEntries))
	for _, entry := range dbEntries {
		entries = append(entries, types.ActivityLogEntry{
			Id:           entry.Id,
			ActivityType: entry.ActivityType,
			Description:  entry.Description,
			Metadata:     entry.Metadata,
			CreatedAt:    entry.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, entries)
}
