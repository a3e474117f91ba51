package main

import (
	"context"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/alfredjeanlab/dogmatch/internal/events"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
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

func TestWatch_PrintsEvents(t *testing.T) {
	setupCLI(t)
	url := startTestNATS(t)
	t.Setenv("DOGMATCH_NATS_URL", url)

	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pub.Close() })

	type result struct {
		out, errOut string
		code        int
	}
	done := make(chan result, 1)
	go func() {
		out, errOut, code := execute(t, "watch", "--count", "1")
		done <- result{out, errOut, code}
	}()

	// The watcher subscribes asynchronously; publish until it has seen one.
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r := <-done:
			if r.code != 0 {
				t.Fatalf("watch exit %d: %s", r.code, r.errOut)
			}
			if !strings.Contains(r.out, "signed in: Ada") {
				t.Errorf("watch output = %q", r.out)
			}
			if !strings.Contains(r.errOut, "Watching dogmatch events on "+url) {
				t.Errorf("watch stderr = %q", r.errOut)
			}
			return
		case <-tick.C:
			_ = pub.Publish(context.Background(), events.TopicSessionLogin, events.SessionLogin{Name: "Ada", At: time.Now()})
		case <-timeout:
			t.Fatal("watch did not exit")
		}
	}
}

func TestWatch_NeedsEventBus(t *testing.T) {
	setupCLI(t)
	_, errOut, code := execute(t, "watch", "--count", "1")
	if code != exitError || !strings.Contains(errOut, "no event bus configured") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}
