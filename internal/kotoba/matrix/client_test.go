package matrix

import (
	"context"
	"path/filepath"
	"testing"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Kotoba/internal/kotoba/store"
)

func testClient(t *testing.T, cfg *Config) (*Client, *[]Message) {
	t.Helper()
	mc, err := mautrix.NewClient("https://matrix.example.org", id.UserID(cfg.UserID), "token")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c := newClient(mc, cfg)
	var got []Message
	c.handler = func(_ context.Context, m Message) { got = append(got, m) }
	return c, &got
}

func textEvent(room, sender, body string, msgType event.MessageType) *event.Event {
	return &event.Event{
		ID:     id.EventID("$ev"),
		RoomID: id.RoomID(room),
		Sender: id.UserID(sender),
		Type:   event.EventMessage,
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: msgType,
			Body:    body,
		}},
	}
}

func editEvent(room, sender, body string) *event.Event {
	evt := textEvent(room, sender, body, event.MsgText)
	evt.Content.Parsed.(*event.MessageEventContent).RelatesTo = &event.RelatesTo{
		Type:    event.RelReplace,
		EventID: id.EventID("$orig"),
	}
	return evt
}

func TestStripReplyFallback(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ギフト一覧", "ギフト一覧"},
		{"> <@bob:example.org> hi\n\nギフト一覧", "ギフト一覧"},
		{"> a\n> b\n\ngift total", "gift total"},
		{"no > quote", "no > quote"},
	}
	for _, tt := range tests {
		if got := stripReplyFallback(tt.in); got != tt.want {
			t.Errorf("stripReplyFallback(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStop_BeforeStart(t *testing.T) {
	c, _ := testClient(t, &Config{UserID: "@kotoba:example.org"})
	c.Stop()
	c.Stop()
}

func TestHandleEvent_Filters(t *testing.T) {
	cfg := &Config{
		UserID:         "@kotoba:example.org",
		Rooms:          []string{"!home:example.org"},
		AllowedSenders: []string{"@alice:example.org"},
	}

	tests := []struct {
		name string
		evt  *event.Event
		want int
	}{
		{"allowed", textEvent("!home:example.org", "@alice:example.org", "誕生日一覧", event.MsgText), 1},
		{"own message", textEvent("!home:example.org", "@kotoba:example.org", "誕生日一覧", event.MsgText), 0},
		{"other room", textEvent("!other:example.org", "@alice:example.org", "誕生日一覧", event.MsgText), 0},
		{"other sender", textEvent("!home:example.org", "@mallory:example.org", "誕生日一覧", event.MsgText), 0},
		{"notice", textEvent("!home:example.org", "@alice:example.org", "誕生日一覧", event.MsgNotice), 0},
		{"edit", editEvent("!home:example.org", "@alice:example.org", "* 誕生日一覧"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, got := testClient(t, cfg)
			c.handleEvent(context.Background(), tt.evt)
			if len(*got) != tt.want {
				t.Fatalf("handled %d messages, want %d", len(*got), tt.want)
			}
		})
	}
}

func TestHandleEvent_ForwardsMessage(t *testing.T) {
	c, got := testClient(t, &Config{UserID: "@kotoba:example.org"})
	c.handleEvent(context.Background(), textEvent("!any:example.org", "@bob:example.org", "支出 ランチ 金額: 800", event.MsgText))

	if len(*got) != 1 {
		t.Fatalf("handled %d messages, want 1", len(*got))
	}
	m := (*got)[0]
	if m.RoomID != "!any:example.org" || m.Sender != "@bob:example.org" || m.EventID != "$ev" {
		t.Errorf("unexpected message envelope: %+v", m)
	}
	if m.Body != "支出 ランチ 金額: 800" {
		t.Errorf("Body = %q", m.Body)
	}
}

func TestDBSyncStore_RoundTrip(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "kotoba.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	ss := NewDBSyncStore(s.DB())
	user := id.UserID("@kotoba:example.org")

	if got, err := ss.LoadNextBatch(ctx, user); err != nil || got != "" {
		t.Fatalf("LoadNextBatch on empty store = (%q, %v), want (\"\", nil)", got, err)
	}
	if err := ss.SaveNextBatch(ctx, user, "s1"); err != nil {
		t.Fatalf("SaveNextBatch: %v", err)
	}
	if err := ss.SaveNextBatch(ctx, user, "s2"); err != nil {
		t.Fatalf("SaveNextBatch overwrite: %v", err)
	}
	if got, _ := ss.LoadNextBatch(ctx, user); got != "s2" {
		t.Errorf("LoadNextBatch = %q, want s2", got)
	}
	if err := ss.SaveFilterID(ctx, user, "f1"); err != nil {
		t.Fatalf("SaveFilterID: %v", err)
	}
	if got, _ := ss.LoadFilterID(ctx, user); got != "f1" {
		t.Errorf("LoadFilterID = %q, want f1", got)
	}
	if got, _ := ss.LoadNextBatch(ctx, user); got != "s2" {
		t.Errorf("saving the filter clobbered next_batch: %q", got)
	}
	if got, _ := ss.LoadNextBatch(ctx, "@other:example.org"); got != "" {
		t.Errorf("LoadNextBatch for another account = %q, want empty", got)
	}
}
