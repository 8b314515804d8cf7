package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Sender is what the workflow services depend on. Dispatch must return
// promptly and must never surface a delivery failure to the caller.
type Sender interface {
	Dispatch(ctx context.Context, msg Message)
}

// Dispatcher sends notifications asynchronously with a bounded timeout and
// per-(order, template) deduplication. A slow or unavailable transport can
// never stall the request that triggered the notification, and a failure is
// logged, not returned — the state transition already committed.
type Dispatcher struct {
	notifier Notifier
	dedupe   DedupeStore
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher builds a Dispatcher. timeout bounds each delivery attempt.
func NewDispatcher(notifier Notifier, dedupe DedupeStore, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		dedupe:   dedupe,
		timeout:  timeout,
	}
}

// Dispatch hands the message to a background goroutine and returns
// immediately. The goroutine detaches from the caller's cancellation but
// keeps its logger and trace context.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	detached := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()

		lg := zctx.From(sendCtx).With(
			zap.String("order_id", msg.OrderID),
			zap.String("template", msg.Template),
		)

		first, err := d.dedupe.Once(sendCtx, msg.OrderID+":"+msg.Template)
		if err != nil {
			// A broken dedupe store must not suppress the business email;
			// at-least-once beats at-most-zero here.
			lg.Warn("Notification dedupe check failed, sending anyway", zap.Error(err))
		} else if !first {
			lg.Debug("Notification already dispatched, skipping duplicate")
			return
		}

		if err := d.notifier.Send(sendCtx, msg); err != nil {
			lg.Error("Notification delivery failed", zap.Error(err))
			return
		}
		lg.Info("Notification dispatched", zap.String("recipient", msg.Recipient))
	}()
}

// Wait blocks until all in-flight dispatches finish. Used during shutdown
// and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
