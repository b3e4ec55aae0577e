package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alumninet/chatserver/internal/database"
	"github.com/alumninet/chatserver/internal/stats"
	"github.com/alumninet/chatserver/internal/streak"
	"github.com/alumninet/chatserver/internal/testutil"
	"github.com/alumninet/chatserver/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestChatServer(t *testing.T, db *database.MockAlumniRepository) (*ChatServer, *stats.MockStatsUpdater) {
	t.Helper()

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.AnythingOfType("string")).Return()

	logger := testutil.TestLogger(t)
	cs, err := NewChatServer(logger, db, streak.NewTracker(logger, db), su)
	assert.NoError(t, err)

	return cs, su
}

// expectConnectActivity wires the repository calls RegisterClient makes
// through the streak tracker. The streak already covers today so nothing
// is persisted.
func expectConnectActivity(db *database.MockAlumniRepository, userId int) {
	today := time.Now().UTC()
	db.On("GetUserStreak", userId).Return(database.UserStreak{
		UserId:           userId,
		CurrentStreak:    1,
		LongestStreak:    1,
		LastActivityDate: &today,
	}, nil)
	db.On("CreateActivityLog", mock.Anything).Return(nil)
}

// registerForTest puts a client in the presence map without the metric
// and activity side effects of RegisterClient.
func registerForTest(cs *ChatServer, c *Client) {
	cs.userLock.Lock()
	if cs.userMap[c.user.Id] == nil {
		cs.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	cs.userMap[c.user.Id][c] = struct{}{}
	cs.userLock.Unlock()
}

func TestRegisterClient(t *testing.T) {
	db := &database.MockAlumniRepository{}
	cs, su := newTestChatServer(t, db)

	expectConnectActivity(db, 1)
	su.On("Incr", metricActiveClients).Return().Times(2)
	su.On("Incr", metricOnlineUsers).Return().Once()

	c1 := NewClient(types.User{Id: 1}, nil, cs, cs.log)
	c2 := NewClient(types.User{Id: 1}, nil, cs, cs.log)

	cs.RegisterClient(c1)
	cs.RegisterClient(c2)

	assert.Equal(t, 2, cs.clientCount(), "expected both connections in the presence map")
	su.AssertExpectations(t)
	db.AssertExpectations(t)
}

func TestRemoveClient(t *testing.T) {
	db := &database.MockAlumniRepository{}
	cs, su := newTestChatServer(t, db)

	expectConnectActivity(db, 1)
	su.On("Incr", metricActiveClients).Return().Times(2)
	su.On("Incr", metricOnlineUsers).Return().Once()
	su.On("Decr", metricActiveClients).Return().Times(2)
	su.On("Decr", metricOnlineUsers).Return().Once()

	c1 := NewClient(types.User{Id: 1}, nil, cs, cs.log)
	c2 := NewClient(types.User{Id: 1}, nil, cs, cs.log)
	cs.RegisterClient(c1)
	cs.RegisterClient(c2)

	cs.removeClient(c1)
	assert.Equal(t, 1, cs.clientCount(), "expected user to stay online while one connection remains")

	cs.removeClient(c2)
	assert.Equal(t, 0, cs.clientCount())

	// removing an already removed client must not double count
	cs.removeClient(c2)

	su.AssertExpectations(t)
}

func TestSendToUser(t *testing.T) {
	db := &database.MockAlumniRepository{}
	cs, _ := newTestChatServer(t, db)

	c1 := NewClient(types.User{Id: 2}, nil, cs, cs.log)
	c2 := NewClient(types.User{Id: 2}, nil, cs, cs.log)
	registerForTest(cs, c1)
	registerForTest(cs, c2)

	frame := errorFrame("test")
	cs.SendToUser(2, frame)

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			assert.Equal(t, frame, got)
		default:
			t.Fatal("expected frame on every connection for the user")
		}
	}

	// offline user, frame is dropped without error
	cs.SendToUser(99, frame)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	db := &database.MockAlumniRepository{}
	cs, _ := newTestChatServer(t, db)

	clients := make([]*Client, 20)
	for i := range clients {
		clients[i] = NewClient(types.User{Id: i % 4}, nil, cs, cs.log)
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			registerForTest(cs, c)
			cs.SendToUser(c.user.Id, errorFrame("test"))
		}(c)
	}
	wg.Wait()

	assert.Equal(t, len(clients), cs.clientCount())
}

func TestShutdown(t *testing.T) {
	t.Run("waits for connections to drain", func(t *testing.T) {
		db := &database.MockAlumniRepository{}
		cs, su := newTestChatServer(t, db)
		su.On("Decr", mock.AnythingOfType("string")).Return()

		c := NewClient(types.User{Id: 1}, nil, cs, cs.log)
		registerForTest(cs, c)

		// stand-in for the read pump's exit path
		go func() {
			<-c.stop
			c.cleanup()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		assert.NoError(t, cs.Shutdown(ctx))
		assert.Equal(t, 0, cs.clientCount())
	})

	t.Run("returns the context error when connections linger", func(t *testing.T) {
		db := &database.MockAlumniRepository{}
		cs, _ := newTestChatServer(t, db)

		c := NewClient(types.User{Id: 1}, nil, cs, cs.log)
		registerForTest(cs, c)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		assert.ErrorIs(t, cs.Shutdown(ctx), context.DeadlineExceeded)
	})
}
