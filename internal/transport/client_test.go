package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"testing"
	"time"
)

// TestClient_ConnectionReuse verifies that sequential polls of the same host
// reuse pooled connections.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"state":"idle"}`))
	}))
	defer server.Close()

	client := NewClient()

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5

	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		resp := client.Do(ctx, Request{URL: server.URL, Timeout: 5 * time.Second})
		if resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	// all requests after the first should reuse the connection
	expectedMinReuse := numRequests - 2
	if reusedCount < expectedMinReuse {
		t.Errorf("expected at least %d reused connections, got %d out of %d requests",
			expectedMinReuse, reusedCount, numRequests)
	}
}

func TestClient_PostBody(t *testing.T) {
	var gotMethod, gotType, gotBody, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		gotHeader = r.Header.Get("X-Request-ID")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp := NewClient().Do(context.Background(), Request{
		Method:      http.MethodPost,
		URL:         server.URL + "/tape/cache/deleteitems",
		Headers:     map[string]string{"X-Request-ID": "abc"},
		Body:        "items=1%2C2",
		ContentType: "application/x-www-form-urlencoded",
	})
	if err := CheckStatus(resp); err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q, want form encoding", gotType)
	}
	if gotBody != "items=1%2C2" {
		t.Errorf("body = %q, want %q", gotBody, "items=1%2C2")
	}
	if gotHeader != "abc" {
		t.Errorf("X-Request-ID = %q, want %q", gotHeader, "abc")
	}
}

func TestClient_TransportErrorIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // nothing listening any more

	resp := NewClient().Do(context.Background(), Request{URL: url, Timeout: time.Second})
	if resp.Error == nil {
		t.Fatal("Do() Error = nil, want transport failure")
	}
	if !errors.Is(resp.Error, ErrTransport) {
		t.Errorf("Do() Error = %v, want errors.Is(ErrTransport)", resp.Error)
	}
	if resp.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", resp.StatusCode)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	resp := NewClient().Do(context.Background(), Request{URL: server.URL, Timeout: 50 * time.Millisecond})
	if !errors.Is(resp.Error, ErrTransport) {
		t.Errorf("Do() Error = %v, want errors.Is(ErrTransport)", resp.Error)
	}
}

func TestCheckStatus(t *testing.T) {
	transportErr := errors.Join(ErrTransport, errors.New("dial tcp: refused"))

	tests := []struct {
		name       string
		resp       Response
		wantNil    bool
		wantStatus int
	}{
		{"200 ok", Response{StatusCode: http.StatusOK}, true, 0},
		{"404", Response{StatusCode: http.StatusNotFound}, false, http.StatusNotFound},
		{"500", Response{StatusCode: http.StatusInternalServerError}, false, http.StatusInternalServerError},
		{"204 is not 200", Response{StatusCode: http.StatusNoContent}, false, http.StatusNoContent},
		{"transport error", Response{Error: transportErr}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStatus(tt.resp)
			if tt.wantNil {
				if err != nil {
					t.Fatalf("CheckStatus() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("CheckStatus() = nil, want error")
			}

			var statusErr *StatusError
			if tt.wantStatus != 0 {
				if !errors.As(err, &statusErr) {
					t.Fatalf("CheckStatus() = %v, want *StatusError", err)
				}
				if statusErr.Code != tt.wantStatus {
					t.Errorf("StatusError.Code = %d, want %d", statusErr.Code, tt.wantStatus)
				}
			} else if !errors.Is(err, ErrTransport) {
				t.Errorf("CheckStatus() = %v, want errors.Is(ErrTransport)", err)
			}
		})
	}
}

// TestClient_Close verifies that Close() is safe to call and idempotent.
func TestClient_Close(t *testing.T) {
	client := NewClient()

	client.Close()
	client.Close()
}

// TestClient_Close_NilClient verifies that Close() handles nil receiver safely.
func TestClient_Close_NilClient(t *testing.T) {
	var client *Client
	client.Close()
}
