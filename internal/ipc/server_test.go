package ipc

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/1broseidon/sizekeep/internal/engine"
	"github.com/1broseidon/sizekeep/internal/platform"
	"github.com/1broseidon/sizekeep/internal/runloop"
	"github.com/1broseidon/sizekeep/internal/store"
	"github.com/1broseidon/sizekeep/internal/winid"
)

// startTestServer runs a daemon-shaped stack (loop, fake window system,
// store, engine, IPC server) against a per-test runtime dir, and returns a
// client talking to it. Engine and store state is only touched via the loop,
// mirroring production.
func startTestServer(t *testing.T) (*Client, *runloop.Loop, *store.Store) {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := runloop.New()
	fake := platform.NewFake()
	st := store.New(filepath.Join(t.TempDir(), "windows.json"), store.Options{}, fake, logger)
	eng := engine.New(fake, st, winid.NewRules(nil, nil), engine.Tunables{}, logger)

	srv, err := NewServer(loop, eng, st, make(chan struct{}, 1))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)

	return NewClient(), loop, st
}

func TestStatusRoundTrip(t *testing.T) {
	client, loop, st := startTestServer(t)

	loop.Call(func() {
		st.Set("firefox", 1024, 768)
	})

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning {
		t.Error("expected daemon_running")
	}
	if status.RecordCount != 1 {
		t.Errorf("record_count = %d, want 1", status.RecordCount)
	}
	if !status.Dirty {
		t.Error("expected dirty store before flush")
	}
}

func TestRecordCommands(t *testing.T) {
	client, loop, st := startTestServer(t)

	loop.Call(func() {
		st.Set("firefox", 1024, 768)
		st.Set("org.gnome.calculator", 400, 500)
	})

	records, err := client.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(records.Records))
	}
	if records.Records[0].ID != "firefox" {
		t.Errorf("records not sorted by id: %+v", records.Records)
	}

	rec, err := client.GetRecord("Firefox")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.Width != 1024 || rec.Height != 768 {
		t.Errorf("record = %+v", rec)
	}

	existed, err := client.ForgetRecord("firefox")
	if err != nil {
		t.Fatalf("ForgetRecord: %v", err)
	}
	if !existed {
		t.Error("expected record to exist")
	}
	existed, err = client.ForgetRecord("firefox")
	if err != nil {
		t.Fatalf("ForgetRecord again: %v", err)
	}
	if existed {
		t.Error("expected record to be gone")
	}

	if _, err := client.GetRecord("firefox"); err == nil {
		t.Error("expected error for a missing record")
	}
}

func TestFlushWritesState(t *testing.T) {
	client, loop, st := startTestServer(t)

	loop.Call(func() {
		st.Set("firefox", 1024, 768)
	})
	if err := client.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	records, err := store.ReadFile(st.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if rec, ok := records["firefox"]; !ok || rec.Width != 1024 {
		t.Fatalf("state on disk = %+v", records)
	}
}

func TestUnknownCommand(t *testing.T) {
	client, _, _ := startTestServer(t)

	if _, err := client.sendRequest(&Request{Command: "NOPE"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestPingWithoutDaemon(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	client := NewClient()
	if err := client.Ping(); err == nil {
		t.Fatal("expected connection error with no daemon")
	}
}
