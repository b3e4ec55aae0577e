package database

type AlumniRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetOrCreateDirectRoom(userA, userB, createdBy int) (Room, error)
	GetRoomWithParticipants(roomId int) (Room, error)
	ListRoomsForUser(accountId int) ([]Room, error)
	IsRoomParticipant(roomId, accountId int) bool
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessageById(messageId int) (Message, error)
	GetMessages(roomId, before, limit int) ([]Message, error)
	UnreadCount(roomId, accountId int) (int, error)
	MarkMessageRead(messageId, accountId int) error
	UpsertTypingIndicator(roomId, accountId int, isTyping bool) error
	CreateMeetingRequest(params CreateMeetingRequestParams) (MeetingRequest, error)
	GetMeetingRequestById(meetingId int) (MeetingRequest, error)
	ListMeetingRequests(accountId int) ([]MeetingRequest, error)
	UpdateMeetingStatus(meetingId int, status, meetingLink string) (MeetingRequest, error)
	GetUserStreak(accountId int) (UserStreak, error)
	SaveUserStreak(streak UserStreak) (UserStreak, error)
	CreateActivityLog(entry ActivityLog) error
	ListActivityLog(accountId, limit int) ([]ActivityLog, error)
}
