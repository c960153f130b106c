package reservation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// channelName is the Postgres notification channel published by the
// reservations AFTER UPDATE trigger (see db/migrations).
const channelName = "reservation_updates"

// reconnectDelay paces reconnection attempts after a dropped listen
// connection.
const reconnectDelay = 5 * time.Second

// row mirrors the trigger's row_to_json output for the fields the reactor
// cares about; unknown columns are ignored.
type row struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Phone  string `json:"phone"`
}

// notification is the {"old": ..., "new": ...} envelope built by the trigger.
type notification struct {
	Old *row `json:"old"`
	New *row `json:"new"`
}

// Listener turns Postgres LISTEN/NOTIFY payloads into ChangeEvents. It is
// the transport side of the change feed: it owns a dedicated connection from
// the pool and pushes decoded events onto the channel handed to Listen.
type Listener struct {
	pool *pgxpool.Pool
	lg   *zap.Logger
}

// NewListener creates a Listener on the given pool.
func NewListener(pool *pgxpool.Pool, lg *zap.Logger) *Listener {
	return &Listener{pool: pool, lg: lg}
}

// Listen blocks, delivering decoded change events to out until ctx is
// cancelled. Connection loss triggers reconnection with a fixed delay;
// malformed payloads are logged and skipped. The out channel is closed on
// return.
func (l *Listener) Listen(ctx context.Context, out chan<- ChangeEvent) error {
	defer close(out)

	for {
		if err := l.listenOnce(ctx, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.lg.Warn("change feed connection lost, reconnecting",
				zap.Error(err),
				zap.Duration("delay", reconnectDelay),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// listenOnce holds one dedicated connection, LISTENs, and forwards
// notifications until the connection or context dies.
func (l *Listener) listenOnce(ctx context.Context, out chan<- ChangeEvent) error {
	poolConn, err := l.pool.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire listen connection")
	}
	defer poolConn.Release()

	conn := poolConn.Conn()
	if _, err := conn.Exec(ctx, "LISTEN "+channelName); err != nil {
		return errors.Wrap(err, "listen")
	}

	l.lg.Info("change feed listening", zap.String("channel", channelName))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return errors.Wrap(err, "wait for notification")
		}

		ev, err := decodeEvent([]byte(n.Payload))
		if err != nil {
			l.lg.Warn("dropping malformed change feed payload", zap.Error(err))
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

// decodeEvent maps a trigger payload to a ChangeEvent. The phone number is
// taken from the new row, falling back to the old one.
func decodeEvent(payload []byte) (ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return ChangeEvent{}, errors.Wrap(err, "decode payload")
	}
	if n.New == nil {
		return ChangeEvent{}, errors.New("payload missing new row")
	}

	ev := ChangeEvent{
		ID:        n.New.ID,
		NewStatus: n.New.Status,
		Phone:     n.New.Phone,
	}
	if n.Old != nil {
		ev.OldStatus = n.Old.Status
		if ev.Phone == "" {
			ev.Phone = n.Old.Phone
		}
	}
	return ev, nil
}
