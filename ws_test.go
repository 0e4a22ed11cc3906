package sitenotice_sdk

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// hub 主循环：注册 -> 广播送达 -> 注销后 send 关闭。
func TestWsServer_RegisterBroadcastUnregister(t *testing.T) {
	h := NewWsServer()
	go h.Run()

	client := &Client{
		hub:       h,
		send:      make(chan []byte, 16),
		UserID:    100,
		SessionID: uuid.NewString(),
	}
	h.register <- client

	h.Broadcast([]byte(`{"type":"notice.refresh"}`))

	select {
	case msg := <-client.send:
		if string(msg) != `{"type":"notice.refresh"}` {
			t.Fatalf("unexpected message: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("broadcast not delivered")
	}

	h.unregister <- client

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatalf("expected send channel closed after unregister")
		}
	case <-time.After(time.Second):
		t.Fatalf("send channel not closed")
	}
}

// 发不动的连接不阻塞广播，其余客户端照常收到。
func TestWsServer_BroadcastSkipsStuckClient(t *testing.T) {
	h := NewWsServer()
	go h.Run()

	stuck := &Client{hub: h, send: make(chan []byte), UserID: 1, SessionID: uuid.NewString()}
	healthy := &Client{hub: h, send: make(chan []byte, 16), UserID: 2, SessionID: uuid.NewString()}
	h.register <- stuck
	h.register <- healthy

	h.Broadcast([]byte("x"))

	select {
	case <-healthy.send:
	case <-time.After(time.Second):
		t.Fatalf("healthy client did not receive broadcast")
	}
}
