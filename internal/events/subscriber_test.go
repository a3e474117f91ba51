package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func newPair(t *testing.T) (*NATSPublisher, *NATSSubscriber) {
	t.Helper()
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	return pub, sub
}

func TestNATSSubscriber_ImplementsSubscriber(t *testing.T) {
	var _ Subscriber = (*NATSSubscriber)(nil)
}

func TestNATSSubscriber_WildcardDelivery(t *testing.T) {
	pub, sub := newPair(t)

	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	ctx := context.Background()
	sent := []struct {
		topic string
		event any
	}{
		{TopicFavoriteRemoved, FavoriteRemoved{DogID: "d1", MatchCleared: true}},
		{TopicSessionExpired, SessionExpired{Reason: "HTTP 401"}},
		{TopicExportWritten, ExportWritten{ExportID: "exp-1", Dogs: 2}},
	}
	for _, s := range sent {
		if err := pub.Publish(ctx, s.topic, s.event); err != nil {
			t.Fatalf("Publish(%s): %v", s.topic, err)
		}
	}
	_ = pub.Flush(time.Second)

	for i, s := range sent {
		select {
		case msg := <-ch:
			if msg.Subject != s.topic {
				t.Errorf("message %d subject = %q, want %q", i, msg.Subject, s.topic)
			}
			if !json.Valid(msg.Data) {
				t.Errorf("message %d payload not JSON: %s", i, msg.Data)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNATSSubscriber_Cancel(t *testing.T) {
	_, sub := newPair(t)

	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	cancel()
	cancel() // second call is a no-op

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestNATSSubscriber_CancelDuringMessages(t *testing.T) {
	pub, sub := newPair(t)

	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			_ = pub.Publish(context.Background(), TopicFavoriteAdded, FavoriteAdded{})
		}
		_ = pub.Flush(time.Second)
	}()

	// Cancel while messages are being sent -- must not panic.
	cancel()
	<-done

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}
