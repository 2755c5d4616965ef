// Package ws is the websocket endpoint a game host attaches to.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/resizer/internal/bridge"
	"github.com/Faultbox/resizer/internal/protocol"
	"github.com/Faultbox/resizer/internal/session"
)

// ErrSlowHost is returned when the host does not drain its outbound queue.
var ErrSlowHost = errors.New("ws: host outbound queue full")

// Options configure the endpoint.
type Options struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64
	OutQueue         int
	// Welcome is sent after a valid HELLO; Type and ProtocolVersion are set
	// by the server.
	Welcome protocol.WelcomeMsg
}

// PostFunc hands a session event to the tick loop.
type PostFunc func(session.Event) error

// MessageHandler handles one validated inbound message.
type MessageHandler func(raw []byte) error

// Server accepts a single game host at a time.
type Server struct {
	host      *bridge.RemoteHost
	post      PostFunc
	validator *protocol.Validator
	opts      Options
	log       *zap.Logger

	upgrader websocket.Upgrader
	handlers map[string]MessageHandler

	mu       sync.Mutex
	active   bool
	connDone chan struct{} // closed when the attached host's handler returns

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates the endpoint. Events decoded from the host go to post.
func NewServer(h *bridge.RemoteHost, post PostFunc, opts Options, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	if opts.OutQueue <= 0 {
		opts.OutQueue = 64
	}
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("loading protocol schemas: %w", err)
	}
	s := &Server{
		host:      h,
		post:      post,
		validator: v,
		opts:      opts,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // hosts are not browsers
		},
		handlers: make(map[string]MessageHandler),
		closing:  make(chan struct{}),
	}
	s.RegisterHandler(protocol.TypeState, s.handleState)
	s.RegisterHandler(protocol.TypeEvent, s.handleEvent)
	s.RegisterHandler(protocol.TypeAck, s.handleAck)
	return s, nil
}

// RegisterHandler registers a handler for an inbound message type.
func (s *Server) RegisterHandler(typ string, h MessageHandler) {
	s.handlers[typ] = h
}

// Attached reports whether a host is connected.
func (s *Server) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Server) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active || s.isClosing() {
		return false
	}
	s.active = true
	s.connDone = make(chan struct{})
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	if s.connDone != nil {
		close(s.connDone)
		s.connDone = nil
	}
}

func (s *Server) isClosing() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// Close stops accepting hosts, writes whatever is still queued for the
// attached host, sends a going-away close frame and waits for the connection
// to end or ctx to expire. Stop the tick loop first so its last batch is
// queued before Close drains.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	s.mu.Lock()
	done := s.connDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler returns the HTTP handler for the host endpoint.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Debug("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		defer conn.Close()
		if s.opts.ReadLimit > 0 {
			conn.SetReadLimit(s.opts.ReadLimit)
		}

		hello, ok := s.handshake(conn)
		if !ok {
			return
		}
		if !s.claim() {
			reason := "another host is attached"
			if s.isClosing() {
				reason = "server shutting down"
			}
			s.reject(conn, protocol.ErrHostBusy, reason)
			return
		}
		defer s.release()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := &sender{ch: make(chan []byte, s.opts.OutQueue), done: ctx.Done()}
		welcome := s.opts.Welcome
		welcome.Type = protocol.TypeWelcome
		welcome.ProtocolVersion = protocol.Version
		if err := s.writeJSON(conn, welcome); err != nil {
			return
		}
		s.host.Attach(out, hello)
		defer s.host.Detach()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-s.closing:
					s.goAway(conn, out)
					return
				case b := <-out.ch:
					if err := s.write(conn, b); err != nil {
						s.log.Warn("host write failed", zap.Error(err))
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil && !s.isClosing() {
					s.log.Info("host connection lost", zap.String("host", hello.HostID), zap.Error(err))
				}
				return
			}
			s.dispatch(out, msg)
		}
	}
}

func (s *Server) dispatch(out *sender, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.log.Warn("undecodable host message", zap.Error(err))
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.log.Warn("host message with wrong protocol version",
			zap.String("type", base.Type),
			zap.String("protocol_version", base.ProtocolVersion))
		return
	}
	h, ok := s.handlers[base.Type]
	if !ok {
		s.log.Warn("unexpected host message", zap.String("type", base.Type))
		return
	}
	if err := s.validator.Validate(base.Type, msg); err != nil {
		s.log.Warn("host message failed schema", zap.String("type", base.Type), zap.Error(err))
		_ = out.Send(protocol.NewError(protocol.ErrProtoSchema, err.Error()))
		return
	}
	if err := h(msg); err != nil {
		s.log.Warn("host message rejected", zap.String("type", base.Type), zap.Error(err))
		_ = out.Send(protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
	}
}

func (s *Server) handleState(raw []byte) error {
	var m protocol.StateMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	return s.host.ApplyState(m)
}

func (s *Server) handleEvent(raw []byte) error {
	var m protocol.EventMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	for _, ev := range s.host.Events(m) {
		if err := s.post(ev); err != nil {
			s.log.Warn("event dropped", zap.String("player", string(ev.Player())), zap.Error(err))
		}
	}
	return nil
}

func (s *Server) handleAck(raw []byte) error {
	var m protocol.AckMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	s.host.Ack(m)
	return nil
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(s.opts.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.log.Debug("handshake read failed", zap.Error(err))
		return protocol.HelloMsg{}, false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.reject(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return protocol.HelloMsg{}, false
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrProtoVersion, "bad protocol_version")
		return protocol.HelloMsg{}, false
	}
	var hello protocol.HelloMsg
	if err := s.validator.Decode(protocol.TypeHello, msg, &hello); err != nil {
		s.reject(conn, protocol.ErrProtoSchema, err.Error())
		return protocol.HelloMsg{}, false
	}
	return hello, true
}

func (s *Server) write(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// goAway flushes the outbound queue and ends the connection. The reader gets
// WriteTimeout to see the host's close reply before its read fails.
func (s *Server) goAway(conn *websocket.Conn, out *sender) {
	for n := len(out.ch); n > 0; n-- {
		if err := s.write(conn, <-out.ch); err != nil {
			s.log.Warn("host write failed during shutdown", zap.Error(err))
			break
		}
	}
	deadline := time.Now().Add(s.opts.WriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
	_ = conn.SetReadDeadline(deadline)
}

// reject sends an ERROR and a policy-violation close frame.
func (s *Server) reject(conn *websocket.Conn, code, reason string) {
	s.log.Info("host rejected", zap.String("code", code), zap.String("reason", reason))
	_ = s.writeJSON(conn, protocol.NewError(code, reason))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code),
		time.Now().Add(time.Second))
}

// writeJSON writes directly to conn. It is only used before the writer
// goroutine starts.
func (s *Server) writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(conn, b)
}

// sender queues encoded messages for the writer goroutine.
type sender struct {
	ch   chan []byte
	done <-chan struct{}
}

func (s *sender) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return bridge.ErrDetached
	case s.ch <- b:
		return nil
	default:
		return ErrSlowHost
	}
}
