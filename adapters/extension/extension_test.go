package extension

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/relay"
	"realestatesync/settings"
	"realestatesync/utils"
)

type fakeRelay struct {
	connected bool
	ack       relay.Message
	err       error
	sent      []relay.Message
}

func (f *fakeRelay) Connected() bool { return f.connected }

func (f *fakeRelay) Send(_ context.Context, msg relay.Message) (relay.Message, error) {
	f.sent = append(f.sent, msg)
	return f.ack, f.err
}

func target() registry.Target {
	t, _ := registry.Get("njoftime")
	return t
}

func TestAcceptWhenExtensionMissing(t *testing.T) {
	a := New(utils.NewTestLogger(), &fakeRelay{connected: false}, time.Second)

	acc := a.Accept(context.Background(), &models.Property{ID: "p-1"}, target(), settings.Config{})
	if acc.Accepted {
		t.Fatal("expected rejection")
	}
	if acc.Reason != "extension not installed" {
		t.Errorf("reason = %q", acc.Reason)
	}
}

func TestAcceptSendsPostProperty(t *testing.T) {
	f := &fakeRelay{connected: true, ack: relay.Message{Type: relay.TypeAck, OK: true}}
	a := New(utils.NewTestLogger(), f, time.Second)

	p := &models.Property{ID: "p-1", Title: "Flat in Tirana"}
	cfg := settings.Config{AdditionalConfig: map[string]string{
		"selector.title": "#ad-title",
		"unrelated":      "x",
	}}

	acc := a.Accept(context.Background(), p, target(), cfg)
	if !acc.Accepted {
		t.Fatalf("expected acceptance, got %q", acc.Reason)
	}

	if len(f.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(f.sent))
	}
	msg := f.sent[0]
	if msg.Type != relay.TypePostProperty {
		t.Errorf("type = %q", msg.Type)
	}
	var payload relay.PostPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Property.ID != "p-1" || payload.Target != "njoftime" {
		t.Errorf("payload = %+v", payload)
	}
	if msg.Mapping["title"] != "#ad-title" {
		t.Errorf("selector mapping not forwarded: %v", msg.Mapping)
	}
	if _, ok := msg.Mapping["unrelated"]; ok {
		t.Error("non-selector keys must not be forwarded")
	}
}

func TestAcceptRejectedByExtension(t *testing.T) {
	f := &fakeRelay{connected: true, ack: relay.Message{Type: relay.TypeAck, OK: false, Error: "a posting is already in progress"}}
	a := New(utils.NewTestLogger(), f, time.Second)

	acc := a.Accept(context.Background(), &models.Property{ID: "p-1"}, target(), settings.Config{})
	if acc.Accepted {
		t.Fatal("expected rejection")
	}
	if acc.Reason != "could not start posting: a posting is already in progress" {
		t.Errorf("reason = %q", acc.Reason)
	}
}

func TestAcceptSendFailure(t *testing.T) {
	f := &fakeRelay{connected: true, err: errors.New("extension did not acknowledge POST_PROPERTY within 5s")}
	a := New(utils.NewTestLogger(), f, time.Second)

	acc := a.Accept(context.Background(), &models.Property{ID: "p-1"}, target(), settings.Config{})
	if acc.Accepted {
		t.Fatal("expected rejection on send failure")
	}
}

func TestTestConnection(t *testing.T) {
	a := New(utils.NewTestLogger(), &fakeRelay{connected: false}, time.Second)
	if err := a.TestConnection(context.Background(), target(), settings.Config{}); !errors.Is(err, relay.ErrNotConnected) {
		t.Errorf("want ErrNotConnected, got %v", err)
	}

	f := &fakeRelay{connected: true, ack: relay.Message{OK: true}}
	a = New(utils.NewTestLogger(), f, time.Second)
	if err := a.TestConnection(context.Background(), target(), settings.Config{}); err != nil {
		t.Errorf("TestConnection: %v", err)
	}
	if f.sent[0].Type != relay.TypeCheckConnection {
		t.Errorf("probe type = %q", f.sent[0].Type)
	}
}
