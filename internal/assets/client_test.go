package assets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ingex/studiolink/internal/command"
	"github.com/ingex/studiolink/internal/envelope"
	"github.com/ingex/studiolink/internal/transport"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type boxRecorder struct {
	mu   sync.Mutex
	errs []error
	ops  []string
}

func (b *boxRecorder) show(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
	b.errs = append(b.errs, err)
}

func (b *boxRecorder) snapshot() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.errs...)
}

func TestClient_OKReplyDeliversPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/assets/getmaterial" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.FormValue("jsonIn"); got != `{"id":3}` {
			t.Errorf("jsonIn = %q", got)
		}
		_, _ = w.Write([]byte(`ok~{"title":"News at Six"}`))
	}))
	defer server.Close()

	box := &boxRecorder{}
	c := NewClient(server.URL, transport.NewClient(), testLogger(), box.show)

	payloads := make(chan string, 1)
	var outcome command.Outcome
	sent, err := c.Call(context.Background(), "getmaterial", map[string]int{"id": 3}, func(p string) {
		payloads <- p
	}, func(o command.Outcome) {
		outcome = o
	})
	if err != nil || !sent {
		t.Fatalf("Call() = %v, %v; want true, nil", sent, err)
	}

	select {
	case p := <-payloads:
		if p != `{"title":"News at Six"}` {
			t.Errorf("payload = %q", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reply")
	}
	c.Wait()

	if errs := box.snapshot(); len(errs) != 0 {
		t.Errorf("message box shown %d times, want 0", len(errs))
	}
	if outcome.Err != nil || outcome.Command.Path != "/assets/getmaterial" {
		t.Errorf("done outcome = %q %v, want /assets/getmaterial without error", outcome.Command.Path, outcome.Err)
	}
}

func TestClient_FailuresReachMessageBox(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		is      func(error) bool
	}{
		{
			name: "err envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("err~Material is locked"))
			},
			is: func(err error) bool {
				var appErr *envelope.ApplicationError
				return errors.As(err, &appErr) && appErr.Message == "Material is locked"
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("Traceback (most recent call last)"))
			},
			is: func(err error) bool { return errors.Is(err, envelope.ErrMalformed) },
		},
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			is: func(err error) bool {
				var se *transport.StatusError
				return errors.As(err, &se)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			box := &boxRecorder{}
			c := NewClient(server.URL, transport.NewClient(), testLogger(), box.show)

			replied := false
			var outcome command.Outcome
			if _, err := c.Call(context.Background(), "export", map[string]string{"format": "mxf"}, func(string) {
				replied = true
			}, func(o command.Outcome) {
				outcome = o
			}); err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			c.Wait()

			errs := box.snapshot()
			if len(errs) != 1 {
				t.Fatalf("message box shown %d times, want 1", len(errs))
			}
			if !tt.is(errs[0]) {
				t.Errorf("message box error = %v, wrong classification", errs[0])
			}
			if replied {
				t.Error("reply callback invoked for a failed call")
			}
			if !tt.is(outcome.Err) {
				t.Errorf("done outcome error = %v, wrong classification", outcome.Err)
			}
			if !c.Enabled() {
				t.Error("Enabled() = false after failed call")
			}
		})
	}
}

func TestClient_TransportFailureOnlyLogged(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	unreachable := server.URL
	server.Close()

	box := &boxRecorder{}
	c := NewClient(unreachable, transport.NewClient(), testLogger(), box.show)

	var outcome command.Outcome
	if _, err := c.Call(context.Background(), "getmaterial", map[string]int{"id": 1}, nil, func(o command.Outcome) {
		outcome = o
	}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	c.Wait()

	if errs := box.snapshot(); len(errs) != 0 {
		t.Errorf("message box shown %d times for a transport failure, want 0: %v", len(errs), errs)
	}
	if !errors.Is(outcome.Err, transport.ErrTransport) {
		t.Errorf("done outcome error = %v, want transport failure", outcome.Err)
	}
	if !c.Enabled() {
		t.Error("Enabled() = false after failed call")
	}
}

func TestClient_GatedWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("ok~"))
	}))
	defer server.Close()

	c := NewClient(server.URL, transport.NewClient(), testLogger(), nil)

	first, _ := c.Call(context.Background(), "delete", []int{1}, nil, nil)
	second, _ := c.Call(context.Background(), "delete", []int{1}, nil, nil)
	close(release)
	c.Wait()

	if !first || second {
		t.Errorf("sends = %v, %v; want true, false", first, second)
	}
}

func TestClient_UnencodableInput(t *testing.T) {
	c := NewClient("http://studio", transport.NewClient(), testLogger(), nil)
	if _, err := c.Call(context.Background(), "export", make(chan int), nil, nil); err == nil {
		t.Error("Call() error = nil for unencodable input")
	}
	if !c.Enabled() {
		t.Error("Enabled() = false after a call that was never sent")
	}
}
