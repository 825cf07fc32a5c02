package pgnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/riverfold/querymind/internal/transport/channel"
)

// listenCmd is one LISTEN/UNLISTEN request serialized through Listener's
// command channel, mirroring pkg/events/listener.go's cmdCh: a dedicated
// LISTEN connection must never run WaitForNotification and Exec
// concurrently, so every state change funnels through the single receive
// loop goroutine instead of calling pgx.Conn directly from callers.
type listenCmd struct {
	userID string
	listen bool // true = LISTEN, false = UNLISTEN
	done   chan error
}

// Listener maintains one dedicated Postgres connection subscribed to a set
// of per-user NOTIFY channels and republishes every notification onto an
// in-process channel.Hub, so WebSocket/SSE subscribers behind this process
// observe events published by any process in the fleet. Grounded in
// pkg/events/listener.go's NotifyListener, retargeted from session
// channels to per-user channels and from a custom dispatch registry to
// channel.Hub.
type Listener struct {
	connConfig *pgx.ConnConfig
	hub        *channel.Hub
	logger     *slog.Logger

	cmdCh chan listenCmd

	genMu sync.Mutex
	gen   map[string]int // userID -> current listen generation, guards stale UNLISTEN races
}

// NewListener builds a Listener. dsn is a pgx-style connection string;
// the listener opens its own connection independent of any pool, since a
// LISTEN session must stay open for the subscription's lifetime rather
// than be recycled.
func NewListener(dsn string, hub *channel.Hub, logger *slog.Logger) (*Listener, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse listener dsn: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		connConfig: cfg,
		hub:        hub,
		logger:     logger,
		cmdCh:      make(chan listenCmd),
		gen:        make(map[string]int),
	}, nil
}

// Run connects and serves the receive loop until ctx is canceled. Run owns
// the connection's full lifetime; callers subscribe/unsubscribe concurrently
// via Listen/Unlisten while Run is active.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := pgx.ConnectConfig(ctx, l.connConfig)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer conn.Close(context.Background()) //nolint:errcheck

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		notif, cmd, err := waitForNotificationOrCmd(ctx, conn, l.cmdCh)
		if cmd != nil {
			cmd.done <- l.applyCmd(ctx, conn, *cmd)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error("pgnotify: wait for notification failed", "error", err)
			continue
		}
		if notif != nil {
			l.dispatch(notif.Channel, notif.Payload)
		}
	}
}

// waitForNotificationOrCmd blocks on either a Postgres notification or a
// pending LISTEN/UNLISTEN command, whichever arrives first, so a caller
// issuing Listen/Unlisten is never stuck behind a long-blocking
// WaitForNotification call. At most one of (notif, cmd) is non-nil; both
// are nil when the wait returned an error. On the
// cmd path it waits for the canceled WaitForNotification goroutine to exit
// before returning, since conn must never see concurrent callers.
func waitForNotificationOrCmd(ctx context.Context, conn *pgx.Conn, cmdCh chan listenCmd) (*pgconnNotification, *listenCmd, error) {
	type result struct {
		notif *pgconnNotification
		err   error
	}
	waitCtx, cancel := context.WithCancel(ctx)
	resultCh := make(chan result, 1)
	go func() {
		n, err := conn.WaitForNotification(waitCtx)
		if n != nil {
			resultCh <- result{notif: &pgconnNotification{Channel: n.Channel, Payload: n.Payload}}
			return
		}
		resultCh <- result{err: err}
	}()

	select {
	case cmd := <-cmdCh:
		cancel()
		<-resultCh // wait for WaitForNotification to release conn before applyCmd touches it
		return nil, &cmd, nil
	case res := <-resultCh:
		cancel()
		return res.notif, nil, res.err
	}
}

// pgconnNotification decouples this package from pgconn's exact type while
// keeping the same two fields the dispatch loop needs.
type pgconnNotification struct {
	Channel string
	Payload string
}

func (l *Listener) applyCmd(ctx context.Context, conn *pgx.Conn, cmd listenCmd) error {
	sql := "LISTEN "
	if !cmd.listen {
		sql = "UNLISTEN "
	}
	_, err := conn.Exec(ctx, sql+pgx.Identifier{cmd.userID}.Sanitize())
	return err
}

// Listen subscribes to userID's channel, bumping its listen generation so
// a racing, now-stale Unlisten call for an earlier generation is ignored.
func (l *Listener) Listen(ctx context.Context, userID string) error {
	l.genMu.Lock()
	l.gen[userID]++
	l.genMu.Unlock()

	done := make(chan error, 1)
	select {
	case l.cmdCh <- listenCmd{userID: UserChannel(userID), listen: true, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-done
}

// Unlisten unsubscribes userID's channel, unless a newer Listen call for
// the same user has since raced ahead of it.
func (l *Listener) Unlisten(ctx context.Context, userID string, generation int) error {
	l.genMu.Lock()
	current := l.gen[userID]
	l.genMu.Unlock()
	if generation != current {
		return nil // superseded by a newer Listen; leave the subscription active
	}

	done := make(chan error, 1)
	select {
	case l.cmdCh <- listenCmd{userID: UserChannel(userID), listen: false, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-done
}

// dispatch parses a NOTIFY payload back into its Envelope and republishes
// it on the local Hub for in-process WebSocket/SSE subscribers.
func (l *Listener) dispatch(pgChannel, payload string) {
	var env channel.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		l.logger.Error("pgnotify: malformed notification payload", "channel", pgChannel, "error", err)
		return
	}
	userID := strings.TrimPrefix(pgChannel, userChannelPrefix)
	l.hub.Republish(userID, env)
}
