package bus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestChannelBusPublishSubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	ctx := context.Background()

	received := make(chan *domain.Message, 1)
	sub, err := b.Subscribe(ctx, domain.TopicFraudAlert, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	event := domain.AlertEvent{Message: "high risk classification"}
	payload, _ := json.Marshal(event)
	if err := b.Publish(ctx, domain.TopicFraudAlert, payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Topic != domain.TopicFraudAlert {
			t.Errorf("Topic = %q, want %q", msg.Topic, domain.TopicFraudAlert)
		}
		var got domain.AlertEvent
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if got.Message != event.Message {
			t.Errorf("Message = %q, want %q", got.Message, event.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestChannelBusMultipleSubscribers(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	ctx := context.Background()

	var mu sync.Mutex
	counts := make(map[string]int)
	var wg sync.WaitGroup
	wg.Add(2)

	for _, name := range []string{"first", "second"} {
		name := name
		_, err := b.Subscribe(ctx, "cases.created", func(ctx context.Context, msg *domain.Message) error {
			mu.Lock()
			counts[name]++
			mu.Unlock()
			wg.Done()
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe %s failed: %v", name, err)
		}
	}

	if err := b.Publish(ctx, "cases.created", []byte(`{}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all subscribers received the message")
	}

	mu.Lock()
	defer mu.Unlock()
	if counts["first"] != 1 || counts["second"] != 1 {
		t.Errorf("counts = %v, want each subscriber to receive exactly one message", counts)
	}
}

func TestChannelBusTopicIsolation(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	ctx := context.Background()

	received := make(chan *domain.Message, 1)
	_, err := b.Subscribe(ctx, domain.TopicFraudAlert, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := b.Publish(ctx, "other.topic", []byte(`{}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		t.Fatalf("received message on wrong topic: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelBusPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	b := NewChannelBus(1)
	defer b.Close()

	ctx := context.Background()

	// Handler that never drains, so the buffer fills after one message.
	block := make(chan struct{})
	_, err := b.Subscribe(ctx, "slow.topic", func(ctx context.Context, msg *domain.Message) error {
		<-block
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = b.Publish(ctx, "slow.topic", []byte(`{}`))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on full subscriber buffer")
	}
	close(block)
}

func TestChannelBusClose(t *testing.T) {
	b := NewChannelBus(10)

	ctx := context.Background()
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("Ping before close: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := b.Ping(ctx); err == nil {
		t.Error("Ping after close should fail")
	}
	if err := b.Publish(ctx, "any", []byte(`{}`)); err == nil {
		t.Error("Publish after close should fail")
	}
	if _, err := b.Subscribe(ctx, "any", func(ctx context.Context, msg *domain.Message) error { return nil }); err == nil {
		t.Error("Subscribe after close should fail")
	}

	// Close is idempotent
	if err := b.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestChannelBusUnsubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	ctx := context.Background()

	received := make(chan *domain.Message, 1)
	sub, err := b.Subscribe(ctx, domain.TopicFraudAlert, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if sub.Topic() != domain.TopicFraudAlert {
		t.Errorf("Topic() = %q, want %q", sub.Topic(), domain.TopicFraudAlert)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if err := b.Publish(ctx, domain.TopicFraudAlert, []byte(`{}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-received:
		t.Fatal("received message after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewFactory(t *testing.T) {
	b, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 10})
	if err != nil {
		t.Fatalf("New channel bus failed: %v", err)
	}
	defer b.Close()

	if _, ok := b.(*ChannelBus); !ok {
		t.Errorf("New returned %T, want *ChannelBus", b)
	}

	if _, err := New(domain.EventBusConfig{Type: "kafka"}); err == nil {
		t.Error("expected error for unknown bus type")
	}
}

func TestMakeSubject(t *testing.T) {
	got := makeSubject(domain.TopicFraudAlert)
	want := "events.kestrel.fraud.alert"
	if got != want {
		t.Errorf("makeSubject = %q, want %q", got, want)
	}
}
