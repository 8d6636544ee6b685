package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/reliancemove/service-quote/internal/application"
	"github.com/reliancemove/service-quote/internal/common/response"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamSendBuffer = 32
)

// StreamHandler pushes committed draft changes to the browser over a websocket.
// Every message is {revision, groups, draft}; clients drop revisions older
// than the last one they applied.
type StreamHandler struct {
	sessions *application.SessionManager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStreamHandler creates a new StreamHandler. Origins are checked against
// allowedOrigins; an empty list accepts any origin.
func NewStreamHandler(sessions *application.SessionManager, allowedOrigins []string, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// RegisterRoutes registers the stream route.
func (h *StreamHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/v1/sessions/:id/stream", h.Stream)
}

// Stream handles GET /api/v1/sessions/:id/stream.
func (h *StreamHandler) Stream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session ID")
		return
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("session_id", id.String()))
		return
	}

	client := newStreamClient(conn, sess, h.logger.With(zap.String("session_id", id.String())))
	unsubscribe := sess.Store().Subscribe(bookingDomain.AllGroups, client.enqueue)

	// The first message is the current draft so the client starts in sync.
	client.enqueue(application.Change{
		Revision: sess.Store().Revision(),
		Groups:   bookingDomain.Groups{},
		Draft:    sess.Snapshot(),
	})

	go client.readPump()
	client.writePump()
	unsubscribe()
}

type streamClient struct {
	conn    *websocket.Conn
	session *application.Session
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger
}

func newStreamClient(conn *websocket.Conn, sess *application.Session, logger *zap.Logger) *streamClient {
	return &streamClient{
		conn:    conn,
		session: sess,
		send:    make(chan []byte, streamSendBuffer),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// enqueue runs on the mutating goroutine and must not block. A client that
// cannot keep up is disconnected.
func (sc *streamClient) enqueue(change application.Change) {
	data, err := json.Marshal(change)
	if err != nil {
		sc.logger.Error("failed to marshal draft change", zap.Error(err))
		return
	}
	select {
	case <-sc.done:
	case sc.send <- data:
	default:
		sc.logger.Warn("stream client too slow, disconnecting", zap.Uint64("revision", change.Revision))
		sc.close()
	}
}

func (sc *streamClient) close() {
	sc.once.Do(func() { close(sc.done) })
}

// readPump discards client messages and notices when the peer goes away.
func (sc *streamClient) readPump() {
	defer sc.close()
	sc.conn.SetReadLimit(512)
	_ = sc.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	sc.conn.SetPongHandler(func(string) error {
		return sc.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := sc.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.logger.Debug("stream read ended", zap.Error(err))
			}
			return
		}
	}
}

func (sc *streamClient) writePump() {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		sc.close()
		_ = sc.conn.Close()
	}()

	for {
		select {
		case data := <-sc.send:
			_ = sc.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := sc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if sc.session.Closed() {
				sc.writeClose("session closed")
				return
			}
			_ = sc.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sc.done:
			sc.writeClose("")
			return
		}
	}
}

func (sc *streamClient) writeClose(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = sc.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
