package shard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/dressroom/internal/config"
	"github.com/udisondev/dressroom/internal/db"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/protocol"
)

const maxMessageSize = 64 << 10

// TicketStore гасит билеты входа, выданные directory.
type TicketStore interface {
	Consume(ctx context.Context, tokenHash string, character model.CharacterID, space model.SpaceID, shardID string) error
}

// CharacterStore загружает персонажей и сохраняет их настройки.
type CharacterStore interface {
	Get(ctx context.Context, id model.CharacterID) (*db.CharacterRecord, error)
	SetPermissions(ctx context.Context, id model.CharacterID, perms restriction.PermissionSet) error
	SetSafemode(ctx context.Context, id model.CharacterID, on bool) error
}

// Server — websocket endpoint shard.
type Server struct {
	cfg      config.Shard
	table    *SpaceTable
	intake   *protocol.Intake
	tickets  TicketStore
	chars    CharacterStore
	clients  *ClientManager
	upgrader websocket.Upgrader
}

// NewServer создаёт сервер. Схемы протокола компилируются здесь.
func NewServer(cfg config.Shard, table *SpaceTable, tickets TicketStore, chars CharacterStore) (*Server, error) {
	intake, err := protocol.NewIntake()
	if err != nil {
		return nil, fmt.Errorf("creating protocol intake: %w", err)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.MaxPermissionOverrides <= 0 {
		cfg.MaxPermissionOverrides = restriction.DefaultMaxOverrides
	}
	return &Server{
		cfg:     cfg,
		table:   table,
		intake:  intake,
		tickets: tickets,
		chars:   chars,
		clients: NewClientManager(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

// Clients returns the connected clients.
func (s *Server) Clients() *ClientManager { return s.clients }

// Handler returns the HTTP handler: /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Run слушает bind_address:port до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.clients.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shard http shutdown", "error", err)
		}
	}()

	slog.Info("shard listening", "address", addr, "shardID", s.cfg.ShardID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shard listening on %s: %w", addr, err)
	}
	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := newClient(conn, s.cfg.SendQueueSize, s.cfg.WriteTimeout)
	go c.writePump()
	defer c.CloseAsync()

	ctx := r.Context()
	if err := s.handshake(ctx, c); err != nil {
		slog.Info("handshake failed", "client", c.remote, "error", err)
		return
	}
	defer func() {
		s.clients.Unregister(c)
		s.table.Leave(c.space, c.character, c)
	}()

	s.readLoop(ctx, c)
}

// handshakeError — отказ в hello, который уходит клиенту кодом протокола.
type handshakeError struct {
	code string
	err  error
}

func (e *handshakeError) Error() string { return e.code + ": " + e.err.Error() }
func (e *handshakeError) Unwrap() error { return e.err }

func (s *Server) handshake(ctx context.Context, c *Client) error {
	var seq uint64
	err := s.join(ctx, c, &seq)
	if err == nil {
		return nil
	}
	code := protocol.ErrCodeInternal
	var he *handshakeError
	if errors.As(err, &he) {
		code = he.code
	}
	s.sendError(c, seq, code, err.Error())
	return err
}

func (s *Server) join(ctx context.Context, c *Client, seq *uint64) error {
	if err := c.conn.SetReadDeadline(time.Now().Add(helloTimeout)); err != nil {
		return err
	}
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}

	env, err := s.intake.Envelope(raw)
	if err != nil {
		return &handshakeError{protocol.ErrCodeBadRequest, err}
	}
	*seq = env.Seq
	if env.Type != protocol.TypeHello {
		return &handshakeError{protocol.ErrCodeNotJoined, fmt.Errorf("expected hello, got %s", env.Type)}
	}
	hello, err := s.intake.Hello(env.Payload)
	if err != nil {
		return &handshakeError{protocol.ErrCodeBadRequest, err}
	}

	if err := s.tickets.Consume(ctx, db.HashToken(hello.Token), hello.CharacterID, hello.SpaceID, s.cfg.ShardID); err != nil {
		if errors.Is(err, db.ErrTicketInvalid) {
			return &handshakeError{protocol.ErrCodeUnauthorized, err}
		}
		return err
	}
	rec, err := s.chars.Get(ctx, hello.CharacterID)
	if err != nil {
		return err
	}
	if rec == nil {
		return &handshakeError{protocol.ErrCodeUnauthorized, fmt.Errorf("character %s not found", hello.CharacterID)}
	}

	if hello.AssetsDigest != "" && hello.AssetsDigest != s.table.Assets().Digest() {
		s.sendError(c, env.Seq, protocol.ErrCodeAssetsChanged, "client asset catalog is outdated")
	}

	c.character = hello.CharacterID
	if old := s.clients.Register(c); old != nil {
		slog.Info("replacing previous connection", "character", c.character, "old", old.remote)
		old.CloseAsync()
	}

	space, err := s.table.Join(ctx, hello.SpaceID, Member{
		ID:         rec.ID,
		Appearance: rec.Appearance,
		Info:       rec.Info(),
	}, rec.AppearanceDigest, c, env.Seq)
	if err != nil {
		s.clients.Unregister(c)
		if errors.Is(err, db.ErrSpaceNotFound) {
			return &handshakeError{protocol.ErrCodeSpaceNotFound, err}
		}
		return err
	}
	c.space = space
	return nil
}

func (s *Server) readLoop(ctx context.Context, c *Client) {
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("read failed", "client", c.remote, "character", c.character, "error", err)
			}
			return
		}

		env, err := s.intake.Envelope(raw)
		if err != nil {
			s.sendError(c, 0, protocol.ErrCodeBadRequest, err.Error())
			continue
		}

		switch env.Type {
		case protocol.TypePing:
			s.send(c, protocol.TypePong, env.Seq, nil)
		case protocol.TypeAction, protocol.TypeQuery:
			s.handleAction(c, env)
		case protocol.TypePermission:
			s.handlePermission(ctx, c, env)
		case protocol.TypeSafemode:
			s.handleSafemode(ctx, c, env)
		case protocol.TypeHello:
			s.sendError(c, env.Seq, protocol.ErrCodeBadRequest, "already joined")
		}
	}
}

func (s *Server) handleAction(c *Client, env protocol.Envelope) {
	action, err := s.intake.Action(env.Payload)
	if err != nil {
		s.sendError(c, env.Seq, protocol.ErrCodeBadRequest, err.Error())
		return
	}
	dryRun := env.Type == protocol.TypeQuery
	res := c.space.Perform(c.character, action, dryRun)
	if !res.OK() {
		slog.Debug("action rejected",
			"character", c.character,
			"action", action.Type(),
			"dryRun", dryRun,
			"reason", res.Problem.Reason)
	}
	s.send(c, protocol.TypeActionResult, env.Seq, protocol.NewActionResult(res, dryRun))
}

func (s *Server) handlePermission(ctx context.Context, c *Client, env protocol.Envelope) {
	req, err := s.intake.Permission(env.Payload)
	if err != nil {
		s.sendError(c, env.Seq, protocol.ErrCodeBadRequest, err.Error())
		return
	}
	info, err := c.space.UpdateInfo(c.character, func(info restriction.CharacterInfo) (restriction.CharacterInfo, error) {
		perms := info.Permissions
		if perms == nil {
			perms = restriction.DefaultPermissions()
		}
		var err error
		if req.CharacterID == "" {
			perms, err = perms.WithDefault(req.Group, req.Permission)
		} else {
			perms, err = perms.WithOverride(req.Group, req.CharacterID, req.Permission, s.cfg.MaxPermissionOverrides)
		}
		if err != nil {
			return info, err
		}
		info.Permissions = perms
		return info, nil
	})
	if err != nil {
		code := protocol.ErrCodeBadRequest
		if errors.Is(err, restriction.ErrTooManyOverrides) {
			code = protocol.ErrCodeTooManyOverrides
		}
		s.sendError(c, env.Seq, code, err.Error())
		return
	}

	s.persist(ctx, c, "permissions", func(ctx context.Context) error {
		return s.chars.SetPermissions(ctx, c.character, info.Permissions)
	})
	s.send(c, protocol.TypeAck, env.Seq, nil)
}

func (s *Server) handleSafemode(ctx context.Context, c *Client, env protocol.Envelope) {
	req, err := s.intake.Safemode(env.Payload)
	if err != nil {
		s.sendError(c, env.Seq, protocol.ErrCodeBadRequest, err.Error())
		return
	}
	if _, err := c.space.UpdateInfo(c.character, func(info restriction.CharacterInfo) (restriction.CharacterInfo, error) {
		info.Safemode = req.Enabled
		return info, nil
	}); err != nil {
		s.sendError(c, env.Seq, protocol.ErrCodeInternal, err.Error())
		return
	}

	s.persist(ctx, c, "safemode", func(ctx context.Context) error {
		return s.chars.SetSafemode(ctx, c.character, req.Enabled)
	})
	s.send(c, protocol.TypeAck, env.Seq, nil)
}

// persist сохраняет настройку персонажа. Ошибка только логируется: значение
// уже действует в space.
func (s *Server) persist(ctx context.Context, c *Client, what string, save func(context.Context) error) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := save(saveCtx); err != nil {
		slog.Error("saving character setting failed", "character", c.character, "setting", what, "error", err)
	}
}

func (s *Server) send(c *Client, typ string, seq uint64, payload any) {
	msg, err := protocol.Encode(typ, seq, payload)
	if err != nil {
		slog.Error("encoding message", "type", typ, "error", err)
		return
	}
	_ = c.Send(msg)
}

func (s *Server) sendError(c *Client, seq uint64, code, message string) {
	s.send(c, protocol.TypeError, seq, protocol.Error{Code: code, Message: message})
}
