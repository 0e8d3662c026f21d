// Package matrix connects Kotoba to Matrix rooms: it keeps a sync loop
// running, passes room text messages from permitted senders to a handler and
// sends replies.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Kotoba/common/retry"
)

// Config holds the Matrix account and the room and sender allow-lists.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms are joined at start and are the only rooms Kotoba listens in.
	// Empty means every room the account is in.
	Rooms []string
	// AllowedSenders restricts who may issue commands. Empty allows anyone
	// in the rooms.
	AllowedSenders []string
	// DB persists the sync token. When nil, room history replays on every
	// restart.
	DB *sql.DB
}

// Message is an incoming text message that passed the filters.
type Message struct {
	RoomID  string
	EventID string
	Sender  string
	Body    string
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg Message)

// resync is the wait between failed /sync attempts.
var resync = retry.Policy{Delay: 2 * time.Second, MaxDelay: 5 * time.Minute}

// Client is a mautrix client bound to Kotoba's rooms.
type Client struct {
	client  *mautrix.Client
	self    id.UserID
	rooms   map[id.RoomID]bool
	senders map[id.UserID]bool
	handler MessageHandler

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a client for cfg. It does not contact the homeserver.
func New(cfg *Config) (*Client, error) {
	mc, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}
	if cfg.DB != nil {
		mc.Store = NewDBSyncStore(cfg.DB)
	} else {
		slog.Warn("no database for the Matrix sync token; history will replay on restart")
	}
	return newClient(mc, cfg), nil
}

func newClient(mc *mautrix.Client, cfg *Config) *Client {
	c := &Client{
		client: mc,
		self:   id.UserID(cfg.UserID),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if len(cfg.Rooms) > 0 {
		c.rooms = make(map[id.RoomID]bool, len(cfg.Rooms))
		for _, r := range cfg.Rooms {
			c.rooms[id.RoomID(r)] = true
		}
	}
	if len(cfg.AllowedSenders) > 0 {
		c.senders = make(map[id.UserID]bool, len(cfg.AllowedSenders))
		for _, s := range cfg.AllowedSenders {
			c.senders[id.UserID(s)] = true
		}
	}
	return c
}

// Start joins the configured rooms and syncs in the background until ctx is
// done or Stop is called. A failed sync is retried with growing waits.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.handler = handler
	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("unexpected Matrix syncer type")
	}
	syncer.OnEventType(event.EventMessage, c.handleEvent)

	for room := range c.rooms {
		if err := c.join(ctx, room); err != nil {
			return fmt.Errorf("failed to join room %s: %w", room, err)
		}
	}

	c.started.Store(true)
	go c.syncLoop(ctx)
	return nil
}

func (c *Client) syncLoop(ctx context.Context) {
	defer close(c.done)
	for failures := 1; ; failures++ {
		err := c.client.SyncWithContext(ctx)
		if err == nil || ctx.Err() != nil || c.stopped() {
			return
		}
		wait := resync.Backoff(failures)
		slog.Error("Matrix sync failed; reconnecting", "err", err, "wait", wait)
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (c *Client) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// Stop ends the sync loop and waits for it to exit.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.client.StopSync()
	})
	if c.started.Load() {
		<-c.done
	}
}

// ReplyToMessage answers eventID in roomID with an HTML body and a plain-text
// fallback.
func (c *Client) ReplyToMessage(ctx context.Context, roomID, eventID, html, plain string) error {
	content := &event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          plain,
		Format:        event.FormatHTML,
		FormattedBody: html,
		RelatesTo:     &event.RelatesTo{InReplyTo: &event.InReplyTo{EventID: id.EventID(eventID)}},
	}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// accepts reports whether a message from sender in room should be handled.
func (c *Client) accepts(room id.RoomID, sender id.UserID) bool {
	if sender == c.self {
		return false
	}
	if c.rooms != nil && !c.rooms[room] {
		return false
	}
	if c.senders != nil && !c.senders[sender] {
		slog.Debug("ignoring sender not on the allow-list", "sender", sender, "room", room)
		return false
	}
	return true
}

// handleEvent forwards plain text messages. Edits are skipped so correcting a
// message never runs a command twice.
func (c *Client) handleEvent(ctx context.Context, evt *event.Event) {
	msg := evt.Content.AsMessage()
	if msg == nil || msg.MsgType != event.MsgText {
		return
	}
	if msg.RelatesTo != nil && msg.RelatesTo.Type == event.RelReplace {
		return
	}
	if !c.accepts(evt.RoomID, evt.Sender) || c.handler == nil {
		return
	}
	c.handler(ctx, Message{
		RoomID:  evt.RoomID.String(),
		EventID: evt.ID.String(),
		Sender:  evt.Sender.String(),
		Body:    stripReplyFallback(msg.Body),
	})
}

// stripReplyFallback drops the "> quoted" lines clients prepend to a reply.
func stripReplyFallback(body string) string {
	if !strings.HasPrefix(body, "> ") {
		return body
	}
	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) && strings.HasPrefix(lines[i], ">") {
		i++
	}
	return strings.TrimSpace(strings.Join(lines[i:], "\n"))
}

// join tolerates M_FORBIDDEN, which homeservers return when the bot is
// already a member.
func (c *Client) join(ctx context.Context, room id.RoomID) error {
	_, err := c.client.JoinRoomByID(ctx, room)
	if errors.Is(err, mautrix.MForbidden) {
		slog.Warn("could not join room; assuming membership", "room", room)
		return nil
	}
	return err
}
