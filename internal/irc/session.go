package irc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CapRequest asks for the Twitch membership, tags and commands capabilities.
const CapRequest = "CAP REQ :twitch.tv/membership twitch.tv/tags twitch.tv/commands\r\n"

// ConnectError is a fatal startup failure: dial or handshake.
type ConnectError struct {
	Op  string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("irc %s: %v", e.Op, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Session is a joined channel on an authenticated connection.
type Session struct {
	conn    *Conn
	nick    string
	channel string
	log     *zap.Logger
}

// Open dials cfg.Addr, performs the capability/PASS/NICK/JOIN handshake and
// returns the joined session. Any handshake failure closes the connection.
func Open(ctx context.Context, cfg *Config) (*Session, error) {
	conn, err := Dial(ctx, cfg)
	if err != nil {
		return nil, &ConnectError{Op: "dial", Err: err}
	}

	if err := handshake(ctx, conn, cfg); err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Op: "handshake", Err: err}
	}

	return &Session{
		conn:    conn,
		nick:    cfg.Nick,
		channel: cfg.Channel,
		log:     conn.log.With(zap.String("channel", cfg.Channel)),
	}, nil
}

func handshake(ctx context.Context, conn *Conn, cfg *Config) error {
	if err := conn.Send(CapRequest); err != nil {
		return err
	}

	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := conn.wait(waitCtx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrHandshakeTimeout
	case err != nil:
		return err
	}
	if _, ok := msg.Command.(CapabilityAck); !ok {
		return fmt.Errorf("%w: got %T", ErrNoAck, msg.Command)
	}

	records := []string{
		fmt.Sprintf("PASS oauth:%s\r\n", cfg.Token),
		fmt.Sprintf("NICK %s\r\n", cfg.Nick),
		fmt.Sprintf("JOIN #%s\r\n", cfg.Channel),
	}
	for _, r := range records {
		if err := conn.Send(r); err != nil {
			return err
		}
	}
	return nil
}

// Nick returns the nickname the session authenticated with.
func (s *Session) Nick() string {
	return s.nick
}

// Channel returns the joined channel without its leading '#'.
func (s *Session) Channel() string {
	return s.channel
}

// Send queues a chat message to the joined channel. Line breaks in text are
// replaced with spaces so the message stays a single record.
func (s *Session) Send(text string) error {
	text = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(text)
	if err := s.conn.Send(fmt.Sprintf("PRIVMSG #%s :%s\r\n", s.channel, text)); err != nil {
		s.log.Warn("send rejected", zap.Error(err))
		return err
	}
	return nil
}

// PollEvent returns the next inbound message without blocking. It returns
// (nil, nil) when nothing is queued and ErrConnectionClosed once the
// connection is gone.
func (s *Session) PollEvent() (*Message, error) {
	return s.conn.Next()
}

// Close tears down the connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
