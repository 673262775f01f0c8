package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// recordingObserver is a test observer that records changes.
type recordingObserver struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingObserver) OnChange(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func receive(sub *Subscription) (Change, bool) {
	select {
	case c := <-sub.C():
		return c, true
	case <-time.After(50 * time.Millisecond):
		return Change{}, false
	}
}

func TestPublishRouting(t *testing.T) {
	tests := []struct {
		name        string
		subscribe   string
		descendants bool
		changed     string
		want        bool
	}{
		{"same collection", "items", false, "items", true},
		{"same row", "items/3", false, "items/3", true},
		{"row change reaches collection with descendants", "items", true, "items/3", true},
		{"row change skips collection without descendants", "items", false, "items/3", false},
		{"collection change reaches row", "items/3", false, "items", true},
		{"other row", "items/4", false, "items/3", false},
		{"other table", "orders", true, "items/3", false},
		{"prefix is not ancestor", "item", true, "items/3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(4, nil)
			sub, err := h.Subscribe(tt.subscribe, tt.descendants)
			if err != nil {
				t.Fatalf("Subscribe() error = %v", err)
			}
			defer sub.Close()

			h.Publish(Change{Address: tt.changed, Table: "items", Kind: KindUpdate, Count: 1})

			_, got := receive(sub)
			if got != tt.want {
				t.Errorf("delivered = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublishFillsIdentity(t *testing.T) {
	h := NewHub(1, nil)
	sub, _ := h.Subscribe("/items/", false)
	defer sub.Close()

	h.Publish(Change{Address: "/items", Kind: KindInsert})

	c, ok := receive(sub)
	if !ok {
		t.Fatal("no change delivered")
	}
	if c.ID == uuid.Nil {
		t.Error("change ID not set")
	}
	if c.At.IsZero() {
		t.Error("change timestamp not set")
	}
	if c.Address != "items" {
		t.Errorf("Address = %q, want %q", c.Address, "items")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	h := NewHub(1, nil)
	sub, _ := h.Subscribe("items", false)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish(Change{Address: "items", Kind: KindInsert})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	published, dropped := h.Stats()
	if published != 10 {
		t.Errorf("published = %d, want 10", published)
	}
	if dropped != 9 {
		t.Errorf("dropped = %d, want 9", dropped)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := NewHub(0, nil)

	// Should not panic
	h.Publish(Change{Address: "items", Kind: KindDelete})
}

func TestSubscriptionClose(t *testing.T) {
	h := NewHub(1, nil)
	sub, _ := h.Subscribe("items", true)

	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}

	sub.Close()
	sub.Close()

	if h.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", h.Len())
	}
	if _, open := <-sub.C(); open {
		t.Error("channel still open after Close")
	}

	h.Publish(Change{Address: "items"})
}

func TestSubscribeEmptyAddress(t *testing.T) {
	h := NewHub(1, nil)
	if _, err := h.Subscribe("/", false); err != ErrEmptyAddress {
		t.Errorf("Subscribe(/) error = %v, want ErrEmptyAddress", err)
	}
}

func TestObservers(t *testing.T) {
	h := NewHub(1, nil)
	o1 := &recordingObserver{}
	o2 := &recordingObserver{}

	h.AddObserver(o1)
	h.AddObserver(o2)
	h.Publish(Change{Address: "items/1", Kind: KindDelete, Count: 1})

	if len(o1.changes) != 1 || len(o2.changes) != 1 {
		t.Fatalf("observer changes = %d, %d; want 1, 1", len(o1.changes), len(o2.changes))
	}

	h.RemoveObserver(o1)
	h.Publish(Change{Address: "items/2", Kind: KindDelete, Count: 1})

	if len(o1.changes) != 1 {
		t.Errorf("removed observer got %d changes, want 1", len(o1.changes))
	}
	if len(o2.changes) != 2 {
		t.Errorf("observer got %d changes, want 2", len(o2.changes))
	}
}

func TestConcurrentPublishAndClose(t *testing.T) {
	h := NewHub(8, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, err := h.Subscribe("items", true)
			if err != nil {
				t.Errorf("Subscribe() error = %v", err)
				return
			}
			sub.Close()
		}()
		go func() {
			defer wg.Done()
			h.Publish(Change{Address: "items/1", Kind: KindUpdate})
		}()
	}
	wg.Wait()
}
