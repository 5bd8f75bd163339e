package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
	"github.com/dan-divy/spruce-sub000/internal/infra/config"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
	sendBuffer     = 64
)

var errTransportClosed = errors.New("realtime: transport closed")

// envelope is the wire frame for named messages in both directions.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Dialer opens websocket transports against the realtime server.
type Dialer struct {
	baseURL      string
	transport    string
	minDelay     time.Duration
	maxDelay     time.Duration
	pingInterval time.Duration
	dialer       *websocket.Dialer
	logger       *zap.Logger
}

var _ port.TransportFactory = (*Dialer)(nil)

// NewDialer creates a transport factory from the realtime settings.
func NewDialer(cfg config.RealtimeSettings, logger *zap.Logger) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dialer{
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		transport:    cfg.Transport,
		minDelay:     cfg.ReconnectMinDelay,
		maxDelay:     cfg.ReconnectMaxDelay,
		pingInterval: cfg.PingInterval,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
	}
	if d.minDelay <= 0 {
		d.minDelay = time.Second
	}
	if d.maxDelay < d.minDelay {
		d.maxDelay = d.minDelay
	}
	if d.pingInterval <= 0 {
		d.pingInterval = 25 * time.Second
	}
	return d
}

// Open starts connecting in the background and returns immediately. The connection
// outlives ctx; it ends only on Close.
func (d *Dialer) Open(ctx context.Context, opts port.TransportOptions) (port.Transport, error) {
	if opts.Credential == nil {
		return nil, fmt.Errorf("realtime: credential source is required")
	}
	if _, err := url.Parse(d.baseURL); err != nil {
		return nil, fmt.Errorf("realtime: invalid url: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	conn := &Conn{
		dialer:  d,
		opts:    opts,
		logger:  d.logger.With(zap.String("namespace", opts.Namespace), zap.String("scope", opts.Scope)),
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		cancel:  cancel,
		limiter: rate.NewLimiter(rate.Every(d.minDelay), 1),
	}
	go conn.run(runCtx)
	return conn, nil
}

// endpoint builds the connection URL carrying the credential, transport and scope.
func (d *Dialer) endpoint(namespace, scope, credential string) (string, error) {
	u, err := url.Parse(d.baseURL + "/" + strings.TrimLeft(namespace, "/"))
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", credential)
	if d.transport != "" {
		q.Set("transport", d.transport)
	}
	if scope != "" {
		q.Set("room", scope)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Conn is a reconnecting websocket transport.
type Conn struct {
	dialer  *Dialer
	opts    port.TransportOptions
	logger  *zap.Logger
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	cancel  context.CancelFunc
	limiter *rate.Limiter
}

// Emit queues a named message. Messages queued while reconnecting are sent once
// the connection is re-established.
func (c *Conn) Emit(event string, payload any) error {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal %q: %w", event, err)
	}

	select {
	case <-c.done:
		return domain.ErrChannelClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("realtime: send buffer full, dropping %q", event)
	}
}

// Close stops the transport. Queued messages are flushed on a live connection.
// Close never waits for handlers and is safe to call more than once.
func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
	})
	return nil
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) run(ctx context.Context) {
	backoff := c.dialer.minDelay

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		ws, err := c.dial(ctx)
		if err != nil {
			if c.closed() {
				return
			}
			c.logger.Warn("realtime connect failed", zap.Duration("retry_in", backoff), zap.Error(err))
			if !c.sleep(backoff) {
				return
			}
			backoff = min(backoff*2, c.dialer.maxDelay)
			continue
		}
		if c.closed() {
			_ = ws.Close()
			return
		}
		backoff = c.dialer.minDelay

		c.logger.Debug("realtime connected")
		if c.opts.Handlers.OnConnect != nil {
			c.opts.Handlers.OnConnect()
		}

		err = c.serve(ws)
		if c.closed() {
			return
		}
		c.logger.Info("realtime connection lost", zap.Error(err))
		if c.opts.Handlers.OnDisconnect != nil {
			c.opts.Handlers.OnDisconnect(err)
		}
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := c.dialer.endpoint(c.opts.Namespace, c.opts.Scope, c.opts.Credential())
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	ws, resp, err := c.dialer.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return ws, nil
}

func (c *Conn) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.done:
		return false
	case <-timer.C:
		return true
	}
}

// serve runs the read and write pumps until either fails or the transport closes.
func (c *Conn) serve(ws *websocket.Conn) error {
	readErr := make(chan error, 1)
	go func() {
		readErr <- c.readPump(ws)
	}()

	err := c.writePump(ws, readErr)
	_ = ws.Close()
	return err
}

func (c *Conn) writePump(ws *websocket.Conn, readErr <-chan error) error {
	ticker := time.NewTicker(c.dialer.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.flush(ws)
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return errTransportClosed

		case err := <-readErr:
			return err

		case data := <-c.send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				// Requeue so the message survives the reconnect.
				select {
				case c.send <- data:
				default:
				}
				return fmt.Errorf("write: %w", err)
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// flush writes whatever is already queued, such as a leave emitted just before Close.
func (c *Conn) flush(ws *websocket.Conn) {
	for {
		select {
		case data := <-c.send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) readPump(ws *websocket.Conn) error {
	pongWait := 2 * c.dialer.pingInterval

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("realtime read error", zap.Error(err))
			}
			return fmt.Errorf("read: %w", err)
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		var event port.RealtimeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Warn("malformed realtime frame", zap.Error(err))
			continue
		}
		if event.Name == "" || c.closed() {
			continue
		}
		if c.opts.Handlers.OnEvent != nil {
			c.opts.Handlers.OnEvent(event)
		}
	}
}
