package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bdobrica/Kotoba/internal/kotoba/matrix"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

type sentReply struct {
	room, event, html, plain string
}

type fakeReplier struct {
	sent []sentReply
	err  error
}

func (f *fakeReplier) ReplyToMessage(_ context.Context, roomID, eventID, html, plain string) error {
	f.sent = append(f.sent, sentReply{roomID, eventID, html, plain})
	return f.err
}

func testApp(t *testing.T, r replier) *App {
	t.Helper()
	cfg := &Config{Locale: normalize.LocaleJA, Location: time.UTC, Agents: []string{"gift"}, CommandTimeout: time.Second}
	interps, err := BuildInterpreters(cfg, storage.NewMemory(time.Now), nil)
	if err != nil {
		t.Fatalf("BuildInterpreters: %v", err)
	}
	return &App{config: cfg, replier: r, pipeline: NewPipeline(interps, PipelineOptions{Lang: LangFor(cfg)})}
}

func TestHandleMessage_RepliesToCommands(t *testing.T) {
	r := &fakeReplier{}
	a := testApp(t, r)

	a.handleMessage(context.Background(), matrix.Message{
		RoomID: "!home:example.org", EventID: "$1", Sender: "@alice:example.org",
		Body: "ギフト ネクタイ, 金額: 1500",
	})
	if len(r.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(r.sent))
	}
	got := r.sent[0]
	if got.room != "!home:example.org" || got.event != "$1" {
		t.Errorf("reply addressed to %s/%s", got.room, got.event)
	}
	if got.plain != "✅ 登録しました (ID: 1)\n- **date**: "+normalize.DateOf(time.Now().UTC()).Canonical()+"\n- **item**: ネクタイ\n- **price**: 1500" {
		t.Errorf("plain = %q", got.plain)
	}
}

func TestHandleMessage_IgnoresChat(t *testing.T) {
	r := &fakeReplier{}
	a := testApp(t, r)
	a.handleMessage(context.Background(), matrix.Message{RoomID: "!home:example.org", Body: "今日はいい天気"})
	if len(r.sent) != 0 {
		t.Errorf("sent %d replies to ordinary chat", len(r.sent))
	}
}

func TestHandleMessage_SendFailureIsLogged(t *testing.T) {
	r := &fakeReplier{err: errors.New("network down")}
	a := testApp(t, r)
	a.handleMessage(context.Background(), matrix.Message{RoomID: "!home:example.org", Body: "ギフト一覧"})
	if len(r.sent) != 1 {
		t.Fatalf("expected one send attempt, got %d", len(r.sent))
	}
}
