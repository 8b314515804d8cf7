package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures sent messages for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}

func confirmedMsg() Message {
	return Message{
		OrderID:   "o1",
		Template:  TemplateOrderConfirmed,
		Recipient: "ada@example.com",
		Params:    map[string]string{"order_number": "ORD-20260801-AAAAAA"},
	}
}

func TestDispatcher_DeliversOnce(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, NewMemoryDedupe(), time.Second)

	d.Dispatch(context.Background(), confirmedMsg())
	d.Wait()

	require.Len(t, rec.messages(), 1)
	assert.Equal(t, "ada@example.com", rec.messages()[0].Recipient)
}

func TestDispatcher_SuppressesDuplicates(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, NewMemoryDedupe(), time.Second)

	// Re-delivered admin action: same order, same template.
	d.Dispatch(context.Background(), confirmedMsg())
	d.Dispatch(context.Background(), confirmedMsg())
	d.Wait()

	assert.Len(t, rec.messages(), 1)
}

func TestDispatcher_DifferentTemplatesBothDeliver(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, NewMemoryDedupe(), time.Second)

	d.Dispatch(context.Background(), confirmedMsg())
	rejected := confirmedMsg()
	rejected.Template = TemplateOrderRejected
	d.Dispatch(context.Background(), rejected)
	d.Wait()

	assert.Len(t, rec.messages(), 2)
}

func TestDispatcher_DeliveryFailureIsSwallowed(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("smtp relay down")}
	d := NewDispatcher(rec, NewMemoryDedupe(), time.Second)

	// Must not panic or propagate; the transition already committed.
	d.Dispatch(context.Background(), confirmedMsg())
	d.Wait()

	assert.Empty(t, rec.messages())
}

func TestDispatcher_ReturnsBeforeDelivery(t *testing.T) {
	block := make(chan struct{})
	slow := notifierFunc(func(ctx context.Context, _ Message) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})
	d := NewDispatcher(slow, NewMemoryDedupe(), 50*time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), confirmedMsg())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a slow transport")
	}

	// The bounded timeout reaps the goroutine even though the transport
	// never answers.
	d.Wait()
	close(block)
}

type notifierFunc func(ctx context.Context, msg Message) error

func (f notifierFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

func TestMemoryDedupe_Once(t *testing.T) {
	d := NewMemoryDedupe()

	first, err := d.Once(context.Background(), "o1:order_confirmed")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Once(context.Background(), "o1:order_confirmed")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := d.Once(context.Background(), "o2:order_confirmed")
	require.NoError(t, err)
	assert.True(t, other)
}
