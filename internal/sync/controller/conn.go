package controller

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"nhooyr.io/websocket"

	"github.com/opendraw/opendraw-sync/internal/sync/dto"
	"github.com/opendraw/opendraw-sync/internal/sync/model"
)

const (
	// writeTimeout bounds a single outbound frame write.
	writeTimeout = 10 * time.Second
	// sendBuffer is the per-connection outbound queue depth.
	sendBuffer = 64
)

// Conn is one authenticated client connection. Outbound frames are
// serialized through a single writer goroutine; inbound frames are
// processed in arrival order by the read loop.
type Conn struct {
	id       string
	identity model.Identity
	ws       *websocket.Conn
	logger   logSDK.Logger

	sendCh    chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id string, identity model.Identity, ws *websocket.Conn, logger logSDK.Logger) *Conn {
	return &Conn{
		id:       id,
		identity: identity,
		ws:       ws,
		logger:   logger,
		sendCh:   make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Conn) ID() string {
	return c.id
}

// Identity returns the verified session identity.
func (c *Conn) Identity() model.Identity {
	return c.identity
}

// shutdown marks the connection terminal; no further frames are queued.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue queues a raw frame for the writer. Frames to a dead or
// saturated connection are dropped; broadcasts are fire-and-forget.
func (c *Conn) enqueue(frame []byte) {
	select {
	case <-c.done:
	case c.sendCh <- frame:
	default:
		c.logger.Warn("send queue full, dropping frame",
			zap.String("conn_id", c.id))
	}
}

// SendEvent marshals and queues a fire-and-forget server event.
func (c *Conn) SendEvent(event string, payload any) {
	frame, err := marshalEvent(event, payload)
	if err != nil {
		c.logger.Error("encode event", zap.Error(err), zap.String("event", event))
		return
	}
	c.enqueue(frame)
}

func marshalEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	frame, err := json.Marshal(dto.Frame{Event: event, Data: data})
	return frame, errors.Wrap(err, "marshal frame")
}

// writeLoop drains the send queue until the connection dies.
func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case frame := <-c.sendCh:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				c.logger.Debug("write frame", zap.Error(err))
				c.shutdown()
				return
			}
		}
	}
}

// heartbeatLoop pings on a fixed interval and closes the connection when
// a pong does not arrive within the dead window.
func (c *Conn) heartbeatLoop(ctx context.Context, interval, deadAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, deadAfter)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				c.logger.Info("heartbeat lost", zap.Error(err),
					zap.String("conn_id", c.id))
				c.shutdown()
				return
			}
		}
	}
}
