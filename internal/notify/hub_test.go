package notify

import (
	"testing"
	"time"

	"github.com/waveroom/marketplace-backend/internal/logger"
)

func recvNotice(t *testing.T, ch <-chan Notice, timeout time.Duration) Notice {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for notice")
	}
	return Notice{}
}

func TestHubBroadcastBySessionKey(t *testing.T) {
	hub := NewHub(logger.NewNop())

	a := hub.NewClient("anon:sess-a")
	hub.AddClient(a)
	b := hub.NewClient("anon:sess-b")
	hub.AddClient(b)

	hub.Broadcast(Notice{Level: LevelInfo, Message: "first", SessionKey: "anon:sess-a"})
	hub.Broadcast(Notice{Level: LevelWarning, Message: "second", SessionKey: "anon:sess-a"})

	got := recvNotice(t, a.Outbound, time.Second)
	if got.Message != "first" {
		t.Fatalf("first notice: want=%q got=%q", "first", got.Message)
	}
	got = recvNotice(t, a.Outbound, time.Second)
	if got.Message != "second" || got.Level != LevelWarning {
		t.Fatalf("second notice: got %+v", got)
	}

	select {
	case n := <-b.Outbound:
		t.Fatalf("client b received a foreign notice: %+v", n)
	default:
	}

	hub.CloseClient(a)
	select {
	case _, ok := <-a.Outbound:
		if ok {
			t.Fatalf("outbound should be closed after CloseClient")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for outbound close")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.NewNop())
	client := hub.NewClient("anon:sess-a")
	hub.AddClient(client)
	defer hub.CloseClient(client)

	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(Notice{Level: LevelInfo, Message: "n", SessionKey: "anon:sess-a"})
	}
	if got := len(client.Outbound); got != cap(client.Outbound) {
		t.Fatalf("outbound length: want=%d got=%d", cap(client.Outbound), got)
	}
}

func TestHubIgnoresKeylessNotices(t *testing.T) {
	hub := NewHub(logger.NewNop())
	client := hub.NewClient("anon:sess-a")
	hub.AddClient(client)
	defer hub.CloseClient(client)

	hub.Broadcast(Notice{Level: LevelInfo, Message: "orphan"})
	select {
	case n := <-client.Outbound:
		t.Fatalf("keyless notice delivered: %+v", n)
	default:
	}
}

func TestHubClientWithoutKeyNeverSubscribes(t *testing.T) {
	hub := NewHub(logger.NewNop())
	client := hub.NewClient("   ")
	hub.AddClient(client)

	hub.Broadcast(Notice{Level: LevelInfo, Message: "n", SessionKey: ""})
	if len(client.Outbound) != 0 {
		t.Fatalf("keyless client must not receive notices")
	}
}
