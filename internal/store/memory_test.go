package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

func errPtr(s string) *string {
	return &s
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	// should start empty
	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items, want 0", len(store.GetAll()))
	}
	if _, ok := store.Get("vtr"); ok {
		t.Error("Get() found a snapshot in an empty store")
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()

	snap := Snapshot{
		Channel:    "vtr",
		Path:       "/vtr/status.json",
		State:      StateConnected,
		StatusCode: 200,
		LatencyMs:  12,
		CheckedAt:  time.Now(),
		Data:       json.RawMessage(`{"state":"PLAY"}`),
	}

	if !store.Update(snap) {
		t.Error("Update() = false for first snapshot, want true")
	}

	got, ok := store.Get("vtr")
	if !ok {
		t.Fatal("Get() did not find stored snapshot")
	}
	if got.State != StateConnected {
		t.Errorf("State = %v, want %v", got.State, StateConnected)
	}
	if string(got.Data) != `{"state":"PLAY"}` {
		t.Errorf("Data = %s", got.Data)
	}
}

func TestMemoryStore_UpdateReplacesSnapshot(t *testing.T) {
	store := NewMemoryStore()

	store.Update(Snapshot{Channel: "vtr", State: StateConnected, Data: json.RawMessage(`{"state":"PLAY"}`)})
	store.Update(Snapshot{Channel: "vtr", State: StateDisconnected, Error: errPtr("connection refused"), Data: json.RawMessage("null")})

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}
	if all[0].State != StateDisconnected {
		t.Errorf("State = %v, want %v", all[0].State, StateDisconnected)
	}
	if all[0].Error == nil || *all[0].Error != "connection refused" {
		t.Errorf("Error = %v, want connection refused", all[0].Error)
	}
}

func TestMemoryStore_ChangeDetection(t *testing.T) {
	store := NewMemoryStore()
	base := Snapshot{Channel: "recorder", State: StateConnected, Data: json.RawMessage(`{"rec":true}`)}

	steps := []struct {
		name string
		snap func(Snapshot) Snapshot
		want bool
	}{
		{"first", func(s Snapshot) Snapshot { return s }, true},
		{"same content new timing", func(s Snapshot) Snapshot {
			s.LatencyMs = 99
			s.CheckedAt = time.Now()
			return s
		}, false},
		{"data changed", func(s Snapshot) Snapshot {
			s.Data = json.RawMessage(`{"rec":false}`)
			return s
		}, true},
		{"back to original", func(s Snapshot) Snapshot { return s }, true},
		{"fields added", func(s Snapshot) Snapshot {
			s.Fields = map[string]string{"Position": "00:01:00:00"}
			return s
		}, true},
		{"fields unchanged", func(s Snapshot) Snapshot {
			s.Fields = map[string]string{"Position": "00:01:00:00"}
			return s
		}, false},
		{"disconnected", func(s Snapshot) Snapshot {
			s.State = StateDisconnected
			s.Data = json.RawMessage("null")
			s.Error = errPtr("timeout")
			return s
		}, true},
		{"different error", func(s Snapshot) Snapshot {
			s.State = StateDisconnected
			s.Data = json.RawMessage("null")
			s.Error = errPtr("connection refused")
			return s
		}, true},
	}

	for _, step := range steps {
		if got := store.Update(step.snap(base)); got != step.want {
			t.Errorf("%s: Update() = %v, want %v", step.name, got, step.want)
		}
	}
}

func TestMemoryStore_GetAllOrdered(t *testing.T) {
	store := NewMemoryStore()

	store.Update(Snapshot{Channel: "vtr"})
	store.Update(Snapshot{Channel: "recorder"})
	store.Update(Snapshot{Channel: "tape"})

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("GetAll() = %v items, want 3", len(all))
	}
	want := []string{"recorder", "tape", "vtr"}
	for i, s := range all {
		if s.Channel != want[i] {
			t.Errorf("GetAll()[%d].Channel = %q, want %q", i, s.Channel, want[i])
		}
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Update(Snapshot{Channel: "tape", State: StateConnected})
	}()

	select {
	case s := <-ch:
		if s.Channel != "tape" {
			t.Errorf("received Channel = %v, want tape", s.Channel)
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_UnchangedSnapshotNotPublished(t *testing.T) {
	store := NewMemoryStore()
	snap := Snapshot{Channel: "vtr", State: StateConnected, Data: json.RawMessage(`{}`)}
	store.Update(snap)

	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	store.Update(snap)

	select {
	case s := <-ch:
		t.Errorf("received unchanged snapshot %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore()

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	go func() {
		store.Update(Snapshot{Channel: "vtr", State: StateConnected})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 updates", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	store.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}

	// second call is a no-op
	store.Unsubscribe(ch)
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()

	// never read
	_ = store.Subscribe()

	ch2 := store.Subscribe()

	done := make(chan bool)

	go func() {
		for i := 0; i < 200; i++ {
			store.Update(Snapshot{
				Channel: "recorder",
				State:   StateConnected,
				Data:    json.RawMessage(fmt.Sprintf(`{"frame":%d}`, i)),
			})
		}
		done <- true
	}()

	go func() {
		for range ch2 {
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Update() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	numGoroutines := 10
	numUpdates := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				store.Update(Snapshot{
					Channel: fmt.Sprintf("ch-%d", id%3),
					Data:    json.RawMessage(fmt.Sprintf(`%d`, j)),
				})
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				_ = store.GetAll()
				_, _ = store.Get("ch-0")
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()

	if got := len(store.GetAll()); got != 3 {
		t.Errorf("GetAll() = %d items, want 3", got)
	}
}
