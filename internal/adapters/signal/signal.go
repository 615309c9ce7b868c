package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/VoiceBridge/internal/app"
	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

type SignalWSController struct {
	Orch *app.Orchestrator

	upgrader   websocket.Upgrader
	readLimit  int64
	sendQueue  int
	pingPeriod time.Duration
}

// NewSignalWSController builds the WS endpoint. checkOrigin applies the
// HTTP CORS policy to upgrades; nil allows every origin.
func NewSignalWSController(orch *app.Orchestrator, cfg config.SignalConfig, checkOrigin func(*http.Request) bool) *SignalWSController {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	ctl := &SignalWSController{
		Orch:       orch,
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin},
		readLimit:  cfg.ReadLimit,
		sendQueue:  cfg.SendQueue,
		pingPeriod: cfg.PingPeriod,
	}
	if ctl.sendQueue <= 0 {
		ctl.sendQueue = 32
	}
	return ctl
}

// WsSignalConn is one admitted WebSocket. It implements core.Connection.
type WsSignalConn struct {
	id       domain.ConnectionID
	identity domain.Identity
	conn     *websocket.Conn
	send     chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) ID() domain.ConnectionID   { return c.id }
func (c *WsSignalConn) Identity() domain.Identity { return c.identity }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// identityFromQuery reads the caller identity supplied at connection time.
func identityFromQuery(c *gin.Context) (domain.Identity, error) {
	raw := c.Query("callerId")
	if raw == "" {
		raw = c.Query("identity")
	}
	return domain.ParseIdentity(raw)
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	identity, err := identityFromQuery(c)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("remote", c.ClientIP()).Msg("rejected connection")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		id:       domain.ConnectionID(uuid.NewString()),
		identity: identity,
		conn:     ws,
		send:     make(chan core.Frame, ctl.sendQueue),
	}
	if err := ctl.Orch.Connect(conn); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("admit")
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").Str("identity", string(identity)).Str("cid", string(conn.id)).Msg("connected")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
