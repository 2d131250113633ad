// Package controller is the websocket transport of the sync protocol:
// connection auth, admission control, room fan-out and frame dispatch.
package controller

import (
	"net/http"
	"strconv"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/opendraw/opendraw-sync/internal/sync/dto"
	"github.com/opendraw/opendraw-sync/internal/sync/model"
	"github.com/opendraw/opendraw-sync/internal/sync/service"
	"github.com/opendraw/opendraw-sync/library/jwt"
	"github.com/opendraw/opendraw-sync/library/log"
	"github.com/opendraw/opendraw-sync/library/throttle"
)

// Config tunes the websocket transport.
type Config struct {
	// AllowedOrigins is the handshake origin allowlist.
	AllowedOrigins []string
	// MaxMessageBytes caps one inbound frame. Default 5MB.
	MaxMessageBytes int64
	// HeartbeatInterval is the server ping cadence. Default 25s.
	HeartbeatInterval time.Duration
	// HeartbeatTimeout declares the peer dead without a pong. Default 60s.
	HeartbeatTimeout time.Duration
}

func (c *Config) fillDefaults() {
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 5 << 20
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 25 * time.Second
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 60 * time.Second
	}
}

// Controller upgrades, authenticates and serves sync connections.
type Controller struct {
	svc          *service.Service
	hub          *Hub
	verifier     *jwt.Verifier
	connLimiter  *throttle.IdentityLimiter
	heavyLimiter *throttle.IdentityLimiter
	cfg          Config
	logger       logSDK.Logger
}

// New create new Controller
func New(svc *service.Service, hub *Hub, verifier *jwt.Verifier,
	connLimiter, heavyLimiter *throttle.IdentityLimiter, cfg Config) *Controller {
	cfg.fillDefaults()

	return &Controller{
		svc:          svc,
		hub:          hub,
		verifier:     verifier,
		connLimiter:  connLimiter,
		heavyLimiter: heavyLimiter,
		cfg:          cfg,
		logger:       log.Logger.Named("sync_ws"),
	}
}

// Hub exposes the room hub for relay wiring.
func (ctl *Controller) Hub() *Hub {
	return ctl.hub
}

// HandleWS is the gin handler for the sync websocket endpoint.
func (ctl *Controller) HandleWS(gctx *gin.Context) {
	req := gctx.Request

	identity, err := ctl.authenticate(req)
	if err != nil {
		ctl.logger.Warn("authentication failed", zap.Error(err))
		gctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	if ok, retryAfter := ctl.connLimiter.Consume(identity.UserID); !ok {
		ctl.logger.Warn("connection rate limited",
			zap.String("user_id", identity.UserID),
			zap.Int("retry_after", retryAfter))
		gctx.Header("Retry-After", strconv.Itoa(retryAfter))
		gctx.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please try again later."})
		return
	}

	ws, err := websocket.Accept(gctx.Writer, req, &websocket.AcceptOptions{
		OriginPatterns: ctl.cfg.AllowedOrigins,
	})
	if err != nil {
		ctl.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	ws.SetReadLimit(ctl.cfg.MaxMessageBytes)

	connID := uuid.NewString()
	connLogger := ctl.logger.Named("conn").With(
		zap.String("conn_id", connID),
		zap.String("user_id", identity.UserID))
	conn := newConn(connID, identity, ws, connLogger)

	connLogger.Info("client connected", zap.String("username", identity.Username))
	ctl.serve(gctx, conn, ws)
}

func (ctl *Controller) serve(gctx *gin.Context, conn *Conn, ws *websocket.Conn) {
	ctx := gctx.Request.Context()

	go conn.writeLoop(ctx)
	go conn.heartbeatLoop(ctx, ctl.cfg.HeartbeatInterval, ctl.cfg.HeartbeatTimeout)

	conn.SendEvent(dto.EventConnected, dto.ConnectedEvent{
		UserID:       conn.identity.UserID,
		ConnectionID: conn.id,
		Timestamp:    time.Now().UnixMilli(),
	})

	// in-order processing: one frame at a time per connection
	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			conn.logger.Info("client disconnected",
				zap.String("reason", websocket.CloseStatus(err).String()))
			break
		}

		ctl.dispatch(ctx, conn, raw)
	}

	conn.shutdown()
	ctl.disconnect(gctx, conn)
	_ = ws.Close(websocket.StatusNormalClosure, "") // nolint: errcheck
}

// disconnect clears transient room state and announces the departure.
func (ctl *Controller) disconnect(gctx *gin.Context, conn *Conn) {
	ctx := gctx.Request.Context()
	for _, projectID := range ctl.hub.LeaveAll(conn) {
		ctl.hub.BroadcastToOthers(ctx, projectID, conn, dto.EventUserLeft, dto.UserLeftEvent{
			UserID:    conn.identity.UserID,
			Username:  conn.identity.Username,
			Timestamp: time.Now().UnixMilli(),
		})
	}
}

// consumeHeavy applies the per-operation admission check for mutating
// operations. A violation rejects the operation, never the connection.
func (ctl *Controller) consumeHeavy(identity model.Identity) error {
	if ok, retryAfter := ctl.heavyLimiter.Consume(identity.UserID); !ok {
		return model.NewRateLimited(retryAfter)
	}
	return nil
}
