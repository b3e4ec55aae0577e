package database

import (
	"github.com/stretchr/testify/mock"
)

type MockAlumniRepository struct {
	mock.Mock
}

func (m *MockAlumniRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockAlumniRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAlumniRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAlumniRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAlumniRepository) GetOrCreateDirectRoom(userA, userB, createdBy int) (Room, error) {
	args := m.Called(userA, userB, createdBy)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockAlumniRepository) GetRoomWithParticipants(roomId int) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockAlumniRepository) ListRoomsForUser(accountId int) ([]Room, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockAlumniRepository) IsRoomParticipant(roomId, accountId int) bool {
	args := m.Called(roomId, accountId)
	return args.Bool(0)
}
func (m *MockAlumniRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockAlumniRepository) GetMessageById(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockAlumniRepository) GetMessages(roomId, before, limit int) ([]Message, error) {
	args := m.Called(roomId, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockAlumniRepository) UnreadCount(roomId, accountId int) (int, error) {
	args := m.Called(roomId, accountId)
	return args.Int(0), args.Error(1)
}
func (m *MockAlumniRepository) MarkMessageRead(messageId, accountId int) error {
	args := m.Called(messageId, accountId)
	return args.Error(0)
}
func (m *MockAlumniRepository) UpsertTypingIndicator(roomId, accountId int, isTyping bool) error {
	args := m.Called(roomId, accountId, isTyping)
	return args.Error(0)
}
func (m *MockAlumniRepository) CreateMeetingRequest(params CreateMeetingRequestParams) (MeetingRequest, error) {
	args := m.Called(params)
	return args.Get(0).(MeetingRequest), args.Error(1)
}
func (m *MockAlumniRepository) GetMeetingRequestById(meetingId int) (MeetingRequest, error) {
	args := m.Called(meetingId)
	return args.Get(0).(MeetingRequest), args.Error(1)
}
func (m *MockAlumniRepository) ListMeetingRequests(accountId int) ([]MeetingRequest, error) {
	args := m.Called(accountId)
	return args.Get(0).([]MeetingRequest), args.Error(1)
}
func (m *MockAlumniRepository) UpdateMeetingStatus(meetingId int, status, meetingLink string) (MeetingRequest, error) {
	args := m.Called(meetingId, status, meetingLink)
	return args.Get(0).(MeetingRequest), args.Error(1)
}
func (m *MockAlumniRepository) GetUserStreak(accountId int) (UserStreak, error) {
	args := m.Called(accountId)
	return args.Get(0).(UserStreak), args.Error(1)
}
func (m *MockAlumniRepository) SaveUserStreak(streak UserStreak) (UserStreak, error) {
	args := m.Called(streak)
	return args.Get(0).(UserStreak), args.Error(1)
}
func (m *MockAlumniRepository) CreateActivityLog(entry ActivityLog) error {
	args := m.Called(entry)
	return args.Error(0)
}
func (m *MockAlumniRepository) ListActivityLog(accountId, limit int) ([]ActivityLog, error) {
	args := m.Called(accountId, limit)
	return args.Get(0).([]ActivityLog), args.Error(1)
}
