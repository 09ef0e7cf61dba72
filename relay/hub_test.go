package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws/wsutil"

	"realestatesync/utils"
)

// fakeExtension drives the client half of a pipe the way the browser
// extension would: it acknowledges every host message it receives.
func fakeExtension(t *testing.T, conn net.Conn, handle func(Message) *Message) {
	t.Helper()
	go func() {
		for {
			data, err := wsutil.ReadServerText(conn)
			if err != nil {
				return
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}

			reply := handle(msg)
			if reply == nil {
				continue
			}
			out, _ := json.Marshal(reply)
			if err := wsutil.WriteClientText(conn, out); err != nil {
				return
			}
		}
	}()
}

func TestSendWithoutExtension(t *testing.T) {
	hub := NewHub(utils.NewTestLogger(), time.Second)

	if hub.Connected() {
		t.Error("hub must start disconnected")
	}
	_, err := hub.Send(context.Background(), Message{Type: TypePing})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("want ErrNotConnected, got %v", err)
	}
}

func TestSendReceivesAck(t *testing.T) {
	hub := NewHub(utils.NewTestLogger(), 5*time.Second)
	server, client := net.Pipe()
	defer client.Close()

	fakeExtension(t, client, func(msg Message) *Message {
		if msg.Type != TypePostProperty {
			t.Errorf("unexpected message type %q", msg.Type)
		}
		ack := Ack(msg.ID, true, "")
		return &ack
	})
	hub.Attach(server)

	if !hub.Connected() {
		t.Fatal("hub should report connected after Attach")
	}

	ack, err := hub.Send(context.Background(), Message{Type: TypePostProperty, Data: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !ack.OK {
		t.Errorf("ack not OK: %s", ack.Error)
	}
}

func TestSendAckTimeout(t *testing.T) {
	hub := NewHub(utils.NewTestLogger(), 50*time.Millisecond)
	server, client := net.Pipe()
	defer client.Close()

	// Extension that reads but never acknowledges.
	fakeExtension(t, client, func(Message) *Message { return nil })
	hub.Attach(server)

	_, err := hub.Send(context.Background(), Message{Type: TypePing})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestStatusUpdateFanOut(t *testing.T) {
	hub := NewHub(utils.NewTestLogger(), time.Second)
	server, client := net.Pipe()
	defer client.Close()

	updates, cancel := hub.Subscribe()
	defer cancel()
	hub.Attach(server)

	data, _ := json.Marshal(StatusUpdate{
		PropertyID: "p-1", Target: "njoftime", Success: true, PostURL: "https://njoftime.com/listing/4",
	})
	msg, _ := json.Marshal(Message{ID: "u-1", Type: TypeUpdateStatus, Data: data})

	go func() {
		if err := wsutil.WriteClientText(client, msg); err != nil {
			t.Errorf("client write: %v", err)
			return
		}
		// The hub acknowledges the update; drain it.
		_, _ = wsutil.ReadServerText(client)
	}()

	select {
	case update := <-updates:
		if update.PropertyID != "p-1" || !update.Success {
			t.Errorf("update = %+v", update)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("status update not delivered to subscriber")
	}
}

func TestDetachOnClose(t *testing.T) {
	hub := NewHub(utils.NewTestLogger(), time.Second)
	server, client := net.Pipe()
	hub.Attach(server)

	client.Close()

	deadline := time.After(5 * time.Second)
	for hub.Connected() {
		select {
		case <-deadline:
			t.Fatal("hub still connected after peer closed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestLoopbackRelaysPostProperty(t *testing.T) {
	tab := &fakeTab{result: StatusUpdate{Success: true}}
	coord := newTestCoordinator(&fakeTabs{tab: tab})
	loopback := NewLoopback(coord)

	if !loopback.Connected() {
		t.Error("loopback is always connected")
	}

	ack, err := loopback.Send(context.Background(), postMessage(t, "p-1", "njoftime"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !ack.OK {
		t.Fatalf("ack rejected: %s", ack.Error)
	}

	select {
	case update := <-loopback.Updates():
		if !update.Success {
			t.Errorf("update = %+v", update)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no update from loopback coordinator")
	}
}
