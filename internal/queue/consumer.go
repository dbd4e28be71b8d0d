package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditConsumer drains the booking events queue and appends one line per
// event to a log file.  Malformed messages are rejected without requeue so
// a poison message cannot stall the queue.
type AuditConsumer struct {
	URL  string
	Path string
	Log  *zap.Logger
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (a *AuditConsumer) Run(ctx context.Context) error {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	log := a.Log
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.URL)
		if err != nil {
			log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = a.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(BookingEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, BookingEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := a.Handle(d.Body); err != nil {
			a.Log.Warn("audit consumer: handle message failed", zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message and appends its audit line.
func (a *AuditConsumer) Handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == "" || ev.Type == "" {
		return errors.New("event missing booking_id or type")
	}
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(a.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders ev as a single human-readable line.
func FormatAuditLine(ev BookingEvent) string {
	transition := ev.Status
	if ev.PreviousStatus != "" && ev.PreviousStatus != ev.Status {
		transition = ev.PreviousStatus + "->" + ev.Status
	}
	line := fmt.Sprintf("[%s] %s | booking_id=%s | status=%s | revision=%d | customer_id=%d | provider_id=%d | service_id=%d | slot=%s | total=%s | actor_id=%d",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.BookingID, transition, ev.Revision,
		ev.CustomerID, ev.ProviderID, ev.ServiceID, ev.RequestedAt.UTC().Format(time.RFC3339), ev.TotalAmount, ev.ActorID)
	if ev.Notes != "" {
		line += fmt.Sprintf(" | notes=%q", ev.Notes)
	}
	return line + "\n"
}
