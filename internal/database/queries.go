package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const messageSelect = "SELECT m.id, m.room_id, m.sender_id, m.content, m.message_type, m.reply_to_id, " +
	"m.meeting_datetime, m.meeting_topic, m.meeting_status, m.created_at, m.updated_at, " +
	"a.first_name, a.last_name, a.email, a.user_type " +
	"FROM chat_messages m JOIN accounts a ON m.sender_id = a.id"

const meetingSelect = "SELECT mr.id, mr.requester_id, mr.recipient_id, mr.room_id, mr.message_id, " +
	"mr.datetime, mr.topic, COALESCE(mr.description, ''), mr.status, COALESCE(mr.meeting_link, ''), " +
	"mr.created_at, mr.updated_at, " +
	"req.first_name, req.last_name, req.email, " +
	"rec.first_name, rec.last_name, rec.email " +
	"FROM meeting_requests mr " +
	"JOIN accounts req ON mr.requester_id = req.id " +
	"JOIN accounts rec ON mr.recipient_id = rec.id"

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (db *PgAlumniRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (first_name, last_name, email, user_type, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id, first_name, last_name, email, user_type, created_at, updated_at",
		params.FirstName,
		params.LastName,
		params.EmailAddress,
		params.UserType,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.FirstName,
		&u.LastName,
		&u.EmailAddress,
		&u.UserType,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return User{}, ErrConflict
	}

	return u, err
}

func (db *PgAlumniRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, first_name, last_name, email, user_type, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.FirstName,
		&user.LastName,
		&user.EmailAddress,
		&user.UserType,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, notFoundOr(err)
}

func (db *PgAlumniRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, first_name, last_name, email, user_type, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.FirstName,
		&user.LastName,
		&user.EmailAddress,
		&user.UserType,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, notFoundOr(err)
}

// directKey normalizes an unordered participant pair so a direct room
// can be looked up regardless of which side initiates.
func directKey(userA, userB int) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

func (db *PgAlumniRepository) getDirectRoom(key string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, kind, COALESCE(name, ''), created_by, created_at, updated_at FROM chat_rooms "+
			"WHERE kind = $1 AND direct_key = $2 LIMIT 1",
		RoomKindDirect,
		key,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Kind,
		&room.Name,
		&room.CreatedBy,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, notFoundOr(err)
}

func (db *PgAlumniRepository) GetOrCreateDirectRoom(userA, userB, createdBy int) (Room, error) {
	key := directKey(userA, userB)

	room, err := db.getDirectRoom(key)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Room{}, err
	}

	room, err = db.createDirectRoom(key, userA, userB, createdBy)
	if isUniqueViolation(err) {
		// a concurrent first contact created the room, use theirs
		return db.getDirectRoom(key)
	}

	return room, err
}

func (db *PgAlumniRepository) createDirectRoom(key string, userA, userB, createdBy int) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO chat_rooms (kind, direct_key, created_by, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, kind, created_by, created_at, updated_at",
		RoomKindDirect,
		key,
		createdBy,
		time.Now().UTC(),
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.Kind,
		&room.CreatedBy,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return Room{}, err
	}

	for _, accountId := range []int{userA, userB} {
		if _, err = tx.Exec(
			"INSERT INTO room_participants (room_id, account_id, created_at) VALUES ($1, $2, $3)",
			room.Id,
			accountId,
			time.Now().UTC(),
		); err != nil {
			return Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, nil
}

func (db *PgAlumniRepository) GetRoomWithParticipants(roomId int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, kind, COALESCE(name, ''), created_by, created_at, updated_at FROM chat_rooms "+
			"WHERE id = $1 LIMIT 1",
		roomId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Kind,
		&room.Name,
		&room.CreatedBy,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return Room{}, notFoundOr(err)
	}

	room.Participants, err = db.roomParticipants(roomId)
	return room, err
}

func (db *PgAlumniRepository) roomParticipants(roomId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.first_name, a.last_name, a.email, a.user_type FROM room_participants p "+
			"JOIN accounts a ON p.account_id = a.id WHERE p.room_id = $1 ORDER BY a.id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]User, 0, 2)
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.Id, &u.FirstName, &u.LastName, &u.EmailAddress, &u.UserType); err != nil {
			return nil, err
		}

		participants = append(participants, u)
	}

	return participants, rows.Err()
}

func (db *PgAlumniRepository) ListRoomsForUser(accountId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.kind, COALESCE(r.name, ''), r.created_by, r.created_at, r.updated_at "+
			"FROM room_participants p JOIN chat_rooms r ON p.room_id = r.id "+
			"WHERE p.account_id = $1 ORDER BY r.updated_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err = rows.Scan(&room.Id, &room.Kind, &room.Name, &room.CreatedBy, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		if rooms[i].Participants, err = db.roomParticipants(rooms[i].Id); err != nil {
			return nil, err
		}
	}

	return rooms, nil
}

func (db *PgAlumniRepository) IsRoomParticipant(roomId, accountId int) bool {
	res := db.conn.QueryRow(
		"SELECT 1 FROM room_participants WHERE room_id = $1 AND account_id = $2 LIMIT 1",
		roomId,
		accountId,
	)

	var one int
	return res.Scan(&one) == nil
}

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var (
		msg             Message
		replyToId       sql.NullInt64
		meetingDatetime sql.NullTime
		meetingTopic    sql.NullString
		meetingStatus   sql.NullString
	)

	err := row.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.Content,
		&msg.MessageType,
		&replyToId,
		&meetingDatetime,
		&meetingTopic,
		&meetingStatus,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.Sender.FirstName,
		&msg.Sender.LastName,
		&msg.Sender.EmailAddress,
		&msg.Sender.UserType,
	)
	if err != nil {
		return Message{}, err
	}

	msg.Sender.Id = msg.SenderId
	if replyToId.Valid {
		id := int(replyToId.Int64)
		msg.ReplyToId = &id
	}
	if meetingDatetime.Valid {
		dt := meetingDatetime.Time
		msg.MeetingDatetime = &dt
	}
	msg.MeetingTopic = meetingTopic.String
	msg.MeetingStatus = meetingStatus.String

	return msg, nil
}

func (db *PgAlumniRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO chat_messages (room_id, sender_id, content, message_type, reply_to_id, "+
			"meeting_datetime, meeting_topic, meeting_status, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $9) RETURNING id",
		params.RoomId,
		params.SenderId,
		params.Content,
		params.MessageType,
		params.ReplyToId,
		params.MeetingDatetime,
		params.MeetingTopic,
		params.MeetingStatus,
		time.Now().UTC(),
	)

	var id int
	if err := res.Scan(&id); err != nil {
		return Message{}, err
	}

	// bump the room so recency ordering follows the latest message
	if _, err := db.conn.Exec(
		"UPDATE chat_rooms SET updated_at = $1 WHERE id = $2",
		time.Now().UTC(),
		params.RoomId,
	); err != nil {
		return Message{}, err
	}

	return db.GetMessageById(id)
}

func (db *PgAlumniRepository) GetMessageById(messageId int) (Message, error) {
	row := db.conn.QueryRow(messageSelect+" WHERE m.id = $1 LIMIT 1", messageId)

	msg, err := scanMessage(row)
	return msg, notFoundOr(err)
}

func (db *PgAlumniRepository) GetMessages(roomId, before, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		messageSelect+" WHERE m.room_id = $1 AND ($2 = 0 OR m.id < $2) "+
			"ORDER BY m.created_at DESC, m.id DESC LIMIT $3",
		roomId,
		before,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// query walks newest-first for the limit, callers get creation order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (db *PgAlumniRepository) UnreadCount(roomId, accountId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT count(*) FROM chat_messages m WHERE m.room_id = $1 AND m.sender_id <> $2 "+
			"AND NOT EXISTS (SELECT 1 FROM message_read_status r WHERE r.message_id = m.id AND r.user_id = $2)",
		roomId,
		accountId,
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

func (db *PgAlumniRepository) MarkMessageRead(messageId, accountId int) error {
	res := db.conn.QueryRow("SELECT id FROM chat_messages WHERE id = $1 LIMIT 1", messageId)

	var id int
	if err := res.Scan(&id); err != nil {
		return notFoundOr(err)
	}

	_, err := db.conn.Exec(
		"INSERT INTO message_read_status (message_id, user_id, read_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (message_id, user_id) DO NOTHING",
		messageId,
		accountId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgAlumniRepository) UpsertTypingIndicator(roomId, accountId int, isTyping bool) error {
	_, err := db.conn.Exec(
		"INSERT INTO typing_indicators (room_id, user_id, is_typing, updated_at) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (room_id, user_id) DO UPDATE SET is_typing = EXCLUDED.is_typing, updated_at = EXCLUDED.updated_at",
		roomId,
		accountId,
		isTyping,
		time.Now().UTC(),
	)

	return err
}

func (db *PgAlumniRepository) CreateMeetingRequest(params CreateMeetingRequestParams) (MeetingRequest, error) {
	res := db.conn.QueryRow(
		"INSERT INTO meeting_requests (requester_id, recipient_id, room_id, message_id, datetime, topic, "+
			"description, status, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $9) RETURNING id",
		params.RequesterId,
		params.RecipientId,
		params.RoomId,
		params.MessageId,
		params.Datetime,
		params.Topic,
		params.Description,
		MeetingStatusPending,
		time.Now().UTC(),
	)

	var id int
	if err := res.Scan(&id); err != nil {
		return MeetingRequest{}, err
	}

	return db.GetMeetingRequestById(id)
}

func scanMeetingRequest(row interface{ Scan(...any) error }) (MeetingRequest, error) {
	var mr MeetingRequest
	err := row.Scan(
		&mr.Id,
		&mr.RequesterId,
		&mr.RecipientId,
		&mr.RoomId,
		&mr.MessageId,
		&mr.Datetime,
		&mr.Topic,
		&mr.Description,
		&mr.Status,
		&mr.MeetingLink,
		&mr.CreatedAt,
		&mr.UpdatedAt,
		&mr.Requester.FirstName,
		&mr.Requester.LastName,
		&mr.Requester.EmailAddress,
		&mr.Recipient.FirstName,
		&mr.Recipient.LastName,
		&mr.Recipient.EmailAddress,
	)
	if err != nil {
		return MeetingRequest{}, err
	}

	mr.Requester.Id = mr.RequesterId
	mr.Recipient.Id = mr.RecipientId

	return mr, nil
}

func (db *PgAlumniRepository) GetMeetingRequestById(meetingId int) (MeetingRequest, error) {
	row := db.conn.QueryRow(meetingSelect+" WHERE mr.id = $1 LIMIT 1", meetingId)

	mr, err := scanMeetingRequest(row)
	return mr, notFoundOr(err)
}

func (db *PgAlumniRepository) ListMeetingRequests(accountId int) ([]MeetingRequest, error) {
	rows, err := db.conn.Query(
		meetingSelect+" WHERE mr.requester_id = $1 OR mr.recipient_id = $1 ORDER BY mr.created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []MeetingRequest
	for rows.Next() {
		mr, err := scanMeetingRequest(rows)
		if err != nil {
			return nil, err
		}

		meetings = append(meetings, mr)
	}

	return meetings, rows.Err()
}

// UpdateMeetingStatus resolves a pending meeting request. The meeting row
// and its paired message row change in one transaction so neither can be
// observed resolved without the other.
func (db *PgAlumniRepository) UpdateMeetingStatus(meetingId int, status, meetingLink string) (MeetingRequest, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return MeetingRequest{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"SELECT message_id, status FROM meeting_requests WHERE id = $1 FOR UPDATE",
		meetingId,
	)

	var (
		messageId     int
		currentStatus string
	)
	if err = res.Scan(&messageId, &currentStatus); err != nil {
		err = notFoundOr(err)
		return MeetingRequest{}, err
	}

	if currentStatus != MeetingStatusPending {
		err = ErrMeetingClosed
		return MeetingRequest{}, err
	}

	if _, err = tx.Exec(
		"UPDATE meeting_requests SET status = $2, meeting_link = COALESCE(NULLIF($3, ''), meeting_link), updated_at = $4 "+
			"WHERE id = $1",
		meetingId,
		status,
		meetingLink,
		time.Now().UTC(),
	); err != nil {
		return MeetingRequest{}, err
	}

	if _, err = tx.Exec(
		"UPDATE chat_messages SET meeting_status = $2, updated_at = $3 WHERE id = $1",
		messageId,
		status,
		time.Now().UTC(),
	); err != nil {
		return MeetingRequest{}, err
	}

	if err = tx.Commit(); err != nil {
		return MeetingRequest{}, err
	}

	return db.GetMeetingRequestById(meetingId)
}

func (db *PgAlumniRepository) GetUserStreak(accountId int) (UserStreak, error) {
	row := db.conn.QueryRow(
		"SELECT id, user_id, current_streak, longest_streak, last_activity_date, streak_start_date, "+
			"is_premium, premium_expires_at, created_at, updated_at FROM user_streaks WHERE user_id = $1 LIMIT 1",
		accountId,
	)

	var (
		streak           UserStreak
		lastActivityDate sql.NullTime
		streakStartDate  sql.NullTime
		premiumExpiresAt sql.NullTime
	)
	err := row.Scan(
		&streak.Id,
		&streak.UserId,
		&streak.CurrentStreak,
		&streak.LongestStreak,
		&lastActivityDate,
		&streakStartDate,
		&streak.IsPremium,
		&premiumExpiresAt,
		&streak.CreatedAt,
		&streak.UpdatedAt,
	)
	if err != nil {
		return UserStreak{}, notFoundOr(err)
	}

	if lastActivityDate.Valid {
		d := lastActivityDate.Time
		streak.LastActivityDate = &d
	}
	if streakStartDate.Valid {
		d := streakStartDate.Time
		streak.StreakStartDate = &d
	}
	if premiumExpiresAt.Valid {
		d := premiumExpiresAt.Time
		streak.PremiumExpiresAt = &d
	}

	return streak, nil
}

func (db *PgAlumniRepository) SaveUserStreak(streak UserStreak) (UserStreak, error) {
	_, err := db.conn.Exec(
		"INSERT INTO user_streaks (user_id, current_streak, longest_streak, last_activity_date, "+
			"streak_start_date, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $6) "+
			"ON CONFLICT (user_id) DO UPDATE SET current_streak = EXCLUDED.current_streak, "+
			"longest_streak = EXCLUDED.longest_streak, last_activity_date = EXCLUDED.last_activity_date, "+
			"streak_start_date = EXCLUDED.streak_start_date, updated_at = EXCLUDED.updated_at",
		streak.UserId,
		streak.CurrentStreak,
		streak.LongestStreak,
		streak.LastActivityDate,
		streak.StreakStartDate,
		time.Now().UTC(),
	)
	if err != nil {
		return UserStreak{}, err
	}

	return db.GetUserStreak(streak.UserId)
}

func (db *PgAlumniRepository) CreateActivityLog(entry ActivityLog) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = db.conn.Exec(
		"INSERT INTO activity_logs (user_id, activity_type, description, metadata, created_at) "+
			"VALUES ($1, $2, $3, $4, $5)",
		entry.UserId,
		entry.ActivityType,
		entry.Description,
		raw,
		time.Now().UTC(),
	)

	return err
}

func (db *PgAlumniRepository) ListActivityLog(accountId, limit int) ([]ActivityLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(
		"SELECT id, user_id, activity_type, description, metadata, created_at FROM activity_logs "+
			"WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		accountId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]ActivityLog, 0, limit)
	for rows.Next() {
		var (
			entry ActivityLog
			raw   []byte
		)
		if err = rows.Scan(&entry.Id, &entry.UserId, &entry.ActivityType, &entry.Description, &raw, &entry.CreatedAt); err != nil {
			return nil, err
		}

		if len(raw) > 0 {
			if err = json.Unmarshal(raw, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
