package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// WEBSOCKET BODY CLIENT
// =============================================================================
//
// The production BodyClient speaks JSON frames over a websocket to a body
// host. The host sends its capability manifest on connect, then exchanges
// task frames: one outbound task per Dispatch, a stream of feedback frames
// back until the task reaches a terminal status.

// wsFrame is the wire format shared with the body host.
type wsFrame struct {
	Type     string                    `json:"type"` // manifest | task | feedback
	TaskID   string                    `json:"task_id,omitempty"`
	Intent   *types.BodyIntent         `json:"intent,omitempty"`
	Status   types.TaskStatus          `json:"status,omitempty"`
	Reason   string                    `json:"reason,omitempty"`
	Manifest *types.CapabilityManifest `json:"manifest,omitempty"`
}

// WSBodyConfig configures the websocket body client.
type WSBodyConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
}

// DefaultWSBodyConfig returns the house defaults.
func DefaultWSBodyConfig(url string) WSBodyConfig {
	return WSBodyConfig{
		URL:              url,
		HandshakeTimeout: 5 * time.Second,
		PingInterval:     20 * time.Second,
	}
}

// WSBodyClient implements BodyClient over one websocket connection. A lost
// connection flips it to the not-connected state; the bridge then degrades
// intents locally instead of failing them remotely.
type WSBodyClient struct {
	cfg       WSBodyConfig
	conn      *websocket.Conn
	writeMu   sync.Mutex
	connected atomic.Bool

	manifestMu sync.RWMutex
	manifest   types.CapabilityManifest

	pendingMu sync.Mutex
	pending   map[string]chan types.BodyFeedback

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewWSBodyClient returns an unconnected client; Manifest reports ok=false
// until Connect succeeds.
func NewWSBodyClient(cfg WSBodyConfig) *WSBodyClient {
	return &WSBodyClient{
		cfg:     cfg,
		pending: make(map[string]chan types.BodyFeedback),
	}
}

// Connect dials the body host, waits for the manifest frame, and starts the
// read and keepalive pumps.
func (c *WSBodyClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("body host dial failed: %w", err)
	}

	var hello wsFrame
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return fmt.Errorf("body host handshake failed: %w", err)
	}
	if hello.Type != "manifest" || hello.Manifest == nil {
		conn.Close()
		return fmt.Errorf("body host handshake: expected manifest frame, got %q", hello.Type)
	}

	c.conn = conn
	c.manifestMu.Lock()
	c.manifest = *hello.Manifest
	c.manifestMu.Unlock()
	c.connected.Store(true)

	pumpCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	g, pumpCtx := errgroup.WithContext(pumpCtx)
	c.group = g
	g.Go(func() error { return c.readPump(pumpCtx) })
	g.Go(func() error { return c.pingLoop(pumpCtx) })

	logging.Bridge("body host connected: %s (%d capabilities)", hello.Manifest.BodyID, len(hello.Manifest.Capabilities))
	return nil
}

// Manifest implements BodyClient.
func (c *WSBodyClient) Manifest() (types.CapabilityManifest, bool) {
	if !c.connected.Load() {
		return types.CapabilityManifest{}, false
	}
	c.manifestMu.RLock()
	defer c.manifestMu.RUnlock()
	return c.manifest, true
}

// Dispatch implements BodyClient: sends one task frame and relays feedback
// until a terminal status (or ctx expiry, which aborts locally).
func (c *WSBodyClient) Dispatch(ctx context.Context, intent types.BodyIntent, progress func(types.BodyFeedback)) (types.BodyFeedback, error) {
	if !c.connected.Load() {
		return types.BodyFeedback{}, fmt.Errorf("body host not connected")
	}

	taskID := uuid.NewString()
	ch := make(chan types.BodyFeedback, 8)
	c.pendingMu.Lock()
	c.pending[taskID] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, taskID)
		c.pendingMu.Unlock()
	}()

	if err := c.writeFrame(wsFrame{Type: "task", TaskID: taskID, Intent: &intent}); err != nil {
		return types.BodyFeedback{}, fmt.Errorf("task dispatch failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return types.BodyFeedback{TaskID: taskID, Status: types.TaskAborted, Reason: "deadline elapsed"}, nil
		case fb, ok := <-ch:
			if !ok {
				return types.BodyFeedback{TaskID: taskID, Status: types.TaskAborted, Reason: "body connection lost"}, nil
			}
			if fb.Status.Terminal() {
				return fb, nil
			}
			if progress != nil {
				progress(fb)
			}
		}
	}
}

func (c *WSBodyClient) writeFrame(f wsFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(f)
}

func (c *WSBodyClient) readPump(ctx context.Context) error {
	defer c.dropConnection()
	for {
		var frame wsFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.Get(logging.CategoryBridge).Warnf("body read pump closed: %v", err)
			return err
		}
		switch frame.Type {
		case "feedback":
			c.route(frame)
		case "manifest":
			if frame.Manifest != nil {
				c.manifestMu.Lock()
				c.manifest = *frame.Manifest
				c.manifestMu.Unlock()
			}
		}
	}
}

// route hands a feedback frame to its waiting dispatcher. The lock is held
// across the send so a racing dropConnection cannot close the channel between
// the lookup and the send; the send never blocks, so holding it is safe.
func (c *WSBodyClient) route(frame wsFrame) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	ch, ok := c.pending[frame.TaskID]
	if !ok {
		return // feedback for a task we no longer track
	}
	select {
	case ch <- types.BodyFeedback{TaskID: frame.TaskID, Status: frame.Status, Reason: frame.Reason}:
	default:
		logging.Bridge("feedback channel full for task %s, dropping update", frame.TaskID)
	}
}

func (c *WSBodyClient) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return err
			}
		}
	}
}

// dropConnection marks the client disconnected and releases waiters.
func (c *WSBodyClient) dropConnection() {
	if !c.connected.CompareAndSwap(true, false) {
		return
	}
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

// Close tears the connection down and waits for the pumps.
func (c *WSBodyClient) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.dropConnection()
	if c.group != nil {
		_ = c.group.Wait()
	}
	return err
}
