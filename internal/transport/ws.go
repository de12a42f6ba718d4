// Package transport exposes the session engine over websocket. One Conn per
// client; the connection doubles as the client's identity until a reconnect
// credential says otherwise.
package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/connect4-arena-go/internal/arena"
	"github.com/kapu/connect4-arena-go/internal/board"
	"github.com/kapu/connect4-arena-go/internal/matchmaker"
	"github.com/kapu/connect4-arena-go/internal/obslog"
	"github.com/kapu/connect4-arena-go/pkg/c4dto"
)

const writeTimeout = 5 * time.Second

// Conn is one client connection. Writes are serialized; a failed write is
// dropped rather than propagated, the read loop notices the broken socket.
type Conn struct {
	ws       *websocket.Conn
	writeMu  sync.Mutex
	username string
}

// Send implements the session registry's transport hook.
func (c *Conn) Send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.ws, v)
}

// Server upgrades websocket requests and dispatches client messages into the
// matchmaking queue and the session registry.
type Server struct {
	sessions *arena.Manager
	queue    *matchmaker.Queue
}

func NewServer(sessions *arena.Manager, queue *matchmaker.Queue) *Server {
	return &Server{sessions: sessions, queue: queue}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		// the browser client is served from another origin in development
		InsecureSkipVerify: true,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}
	conn := &Conn{ws: ws}
	defer s.teardown(conn)

	_ = conn.Send(c4dto.Hello{Type: c4dto.TypeHello, Message: "connect4 arena"})

	ctx := r.Context()
	for {
		var msg c4dto.ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			return
		}
		s.dispatch(conn, &msg)
	}
}

func (s *Server) teardown(conn *Conn) {
	s.queue.Leave(conn)
	s.sessions.HandleDisconnect(conn)
	_ = conn.ws.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) dispatch(conn *Conn, msg *c4dto.ClientMessage) {
	switch msg.Type {
	case c4dto.TypeAuth:
		name := strings.TrimSpace(msg.Username)
		if name == "" || strings.EqualFold(name, arena.BotName) {
			s.sendError(conn, "invalid username")
			return
		}
		conn.username = name
		_ = conn.Send(c4dto.AuthOK{Type: c4dto.TypeAuthOK, Username: name})

	case c4dto.TypeJoinQueue:
		if conn.username == "" {
			s.sendError(conn, "auth required")
			return
		}
		if !s.queue.Join(conn.username, conn) {
			_ = conn.Send(c4dto.Ack{Type: c4dto.TypeQueued})
		}

	case c4dto.TypeLeaveQueue:
		if s.queue.Leave(conn) {
			_ = conn.Send(c4dto.Ack{Type: c4dto.TypeLeftQueue})
		}

	case c4dto.TypeCreateBot:
		if conn.username == "" {
			s.sendError(conn, "auth required")
			return
		}
		s.queue.Leave(conn)
		_ = conn.Send(c4dto.Ack{Type: c4dto.TypeCreateBotAck})
		s.sessions.CreateBotSession(arena.SeatSpec{Username: conn.username, Transport: conn})

	case c4dto.TypePlayMove:
		if msg.Col == nil {
			s.sendError(conn, "col required")
			return
		}
		err := s.sessions.ApplyMove(msg.GameID, msg.ReconnectToken, conn, *msg.Col)
		s.reportMoveError(conn, err)

	case c4dto.TypeRejoin:
		gameID, ok := s.sessions.HandleReconnect(msg.ReconnectToken, conn)
		if !ok {
			s.sendError(conn, "no game for that token")
			return
		}
		_ = conn.Send(c4dto.Ack{Type: c4dto.TypeRejoinOK, GameID: gameID})

	case c4dto.TypeRematchOfferIn:
		if err := s.sessions.RematchOffer(msg.GameID, msg.ReconnectToken, conn); err != nil {
			s.sendError(conn, err.Error())
		}

	case c4dto.TypeRematchRespond:
		if err := s.sessions.RematchRespond(msg.GameID, msg.ReconnectToken, conn, msg.AcceptFlag()); err != nil {
			s.sendError(conn, err.Error())
		}

	default:
		s.sendError(conn, "unknown message type")
	}
}

func (s *Server) reportMoveError(conn *Conn, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, board.ErrInvalidColumn),
		errors.Is(err, board.ErrColumnFull),
		errors.Is(err, board.ErrWrongTurn),
		errors.Is(err, board.ErrGameFinished):
		_ = conn.Send(c4dto.Error{Type: c4dto.TypeInvalidMove, Message: err.Error()})
	default:
		s.sendError(conn, err.Error())
	}
}

func (s *Server) sendError(conn *Conn, message string) {
	_ = conn.Send(c4dto.Error{Type: c4dto.TypeError, Message: message})
}
