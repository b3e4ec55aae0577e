package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/alumninet/chatserver/internal/database"
	"github.com/alumninet/chatserver/internal/stats"
	"github.com/alumninet/chatserver/internal/streak"
	"github.com/teris-io/shortid"
)

const (
	metricActiveClients   = "ActiveClients"
	metricOnlineUsers     = "OnlineUsers"
	metricMessagesSent    = "MessagesSent"
	metricMeetingRequests = "MeetingRequests"
)

// ChatServer routes chat events between live connections. It owns the
// user-to-connections presence map; everything else it touches lives in
// the repository.
type ChatServer struct {
	log      *log.Logger
	db       database.AlumniRepository
	streaks  *streak.Tracker
	stats    stats.StatsProvider
	userMap  map[int]map[*Client]struct{}
	userLock sync.RWMutex

	genMeetingSlug func() (string, error)
}

func NewChatServer(logger *log.Logger, db database.AlumniRepository, streaks *streak.Tracker, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		db:             db,
		streaks:        streaks,
		stats:          su,
		userMap:        make(map[int]map[*Client]struct{}),
		genMeetingSlug: shortid.Generate,
	}

	for _, name := range []string{metricActiveClients, metricOnlineUsers, metricMessagesSent, metricMeetingRequests} {
		su.RegisterMetric(name)
	}

	return cs, nil
}

// RegisterClient adds a connection to the presence map and records the
// connect activity.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.userLock.Lock()
	if cs.userMap[c.user.Id] == nil {
		cs.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	firstConn := len(cs.userMap[c.user.Id]) == 0
	cs.userMap[c.user.Id][c] = struct{}{}
	cs.userLock.Unlock()

	cs.stats.Incr(metricActiveClients)
	if firstConn {
		cs.stats.Incr(metricOnlineUsers)
	}

	cs.log.Printf("user %d connected", c.user.Id)
	cs.streaks.RecordActivity(c.user.Id, streak.ActivityLogin, "User connected to chat", nil)
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.userLock.Lock()
	clients, ok := cs.userMap[c.user.Id]
	if ok {
		if _, present := clients[c]; present {
			delete(clients, c)
			cs.stats.Decr(metricActiveClients)
		}
		if len(clients) == 0 {
			delete(cs.userMap, c.user.Id)
			cs.stats.Decr(metricOnlineUsers)
		}
	}
	cs.userLock.Unlock()

	cs.log.Printf("user %d connection removed", c.user.Id)
}

// SendToUser queues a frame on every live connection for the user. No
// connections is the offline case and the frame is dropped.
func (cs *ChatServer) SendToUser(userId int, frame *ServerFrame) {
	cs.userLock.RLock()
	targets := make([]*Client, 0, len(cs.userMap[userId]))
	for c := range cs.userMap[userId] {
		targets = append(targets, c)
	}
	cs.userLock.RUnlock()

	for _, c := range targets {
		if !c.queueFrame(frame) {
			cs.log.Printf("dropping frame for user %d, send buffer full", userId)
		}
	}
}

func (cs *ChatServer) clientCount() int {
	cs.userLock.RLock()
	defer cs.userLock.RUnlock()

	var n int
	for _, clients := range cs.userMap {
		n += len(clients)
	}
	return n
}

// Shutdown stops every live connection and waits for the presence map to
// drain.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.userLock.RLock()
	var all []*Client
	for _, clients := range cs.userMap {
		for c := range clients {
			all = append(all, c)
		}
	}
	cs.userLock.RUnlock()

	cs.log.Printf("closing %d connections", len(all))
	for _, c := range all {
		c.stopClient()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if cs.clientCount() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
