package irc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultAddr is the plain-text Twitch chat endpoint.
const DefaultAddr = "irc.chat.twitch.tv:6667"

const (
	defaultHandshakeTimeout = 5 * time.Second
	drainTimeout            = 2 * time.Second
	rateWindow              = 30 * time.Second
)

var (
	// ErrConnectionClosed is reported by polls and sends once the socket is gone.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrHandshakeTimeout means no capability ack arrived in time.
	ErrHandshakeTimeout = errors.New("timed out waiting for capability ack")
	// ErrNoAck means the first message after the capability request was not an ack.
	ErrNoAck = errors.New("no capability ack")
	// ErrSessionClosed is returned by Send when the writer no longer accepts records.
	ErrSessionClosed = errors.New("session closed")
)

// DialFunc opens the underlying stream. net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config holds IRC connection configuration
type Config struct {
	Addr    string
	Token   string
	Nick    string
	Channel string

	// HandshakeTimeout bounds the wait for the capability ack.
	HandshakeTimeout time.Duration
	// MessagesPer30s caps outbound PRIVMSG records; 0 disables the limit.
	MessagesPer30s int

	Dial   DialFunc
	Logger *zap.Logger
}

// NewConfig creates a new IRC configuration with defaults
func NewConfig(nick, channel, token string) *Config {
	return &Config{
		Addr:             DefaultAddr,
		Token:            token,
		Nick:             nick,
		Channel:          channel,
		HandshakeTimeout: defaultHandshakeTimeout,
		MessagesPer30s:   20,
	}
}

func (cfg *Config) logger() *zap.Logger {
	if cfg.Logger == nil {
		return zap.NewNop()
	}
	return cfg.Logger
}

func (cfg *Config) dialer() DialFunc {
	if cfg.Dial == nil {
		var d net.Dialer
		return d.DialContext
	}
	return cfg.Dial
}

// Conn owns the socket. One goroutine turns inbound lines into parsed
// messages, another writes queued outbound records in submission order.
type Conn struct {
	cfg  *Config
	conn net.Conn
	log  *zap.Logger

	inbound  *queue[*Message]
	outbound *queue[string]
	limiter  *rate.Limiter

	ctx        context.Context
	cancel     context.CancelFunc
	group      errgroup.Group
	writerDone chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to cfg.Addr and starts the reader and writer loops.
func Dial(ctx context.Context, cfg *Config) (*Conn, error) {
	conn, err := cfg.dialer()(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		cfg:        cfg,
		conn:       conn,
		log:        cfg.logger().With(zap.String("addr", cfg.Addr)),
		inbound:    newQueue[*Message](),
		outbound:   newQueue[string](),
		ctx:        loopCtx,
		cancel:     cancel,
		writerDone: make(chan struct{}),
	}
	if cfg.MessagesPer30s > 0 {
		c.limiter = rate.NewLimiter(rate.Every(rateWindow/time.Duration(cfg.MessagesPer30s)), cfg.MessagesPer30s)
	}

	c.group.Go(c.readLoop)
	c.group.Go(c.writeLoop)

	c.log.Info("connected")
	return c, nil
}

// readLoop continuously reads from the IRC server
func (c *Conn) readLoop() error {
	defer c.outbound.close(ErrConnectionClosed)
	defer c.inbound.close(ErrConnectionClosed)

	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if c.ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.log.Info("connection closed")
				return nil
			}
			c.log.Warn("read failed", zap.Error(err))
			return fmt.Errorf("read: %w", err)
		}

		// Keepalive pings arrive without a prefix, so they never parse.
		if arg, ok := strings.CutPrefix(line, "PING "); ok {
			arg = strings.TrimRight(arg, "\r\n")
			c.log.Debug("answering ping", zap.String("arg", arg))
			if err := c.Send("PONG " + arg + "\r\n"); err != nil {
				return nil
			}
			continue
		}

		msg := Parse(line)
		if msg == nil {
			c.log.Debug("dropping malformed line", zap.String("line", line))
			continue
		}
		if err := c.inbound.push(msg); err != nil {
			return nil
		}
	}
}

// writeLoop drains the outbound queue onto the socket.
func (c *Conn) writeLoop() error {
	defer close(c.writerDone)

	for {
		record, err := c.outbound.pop(c.ctx)
		if err != nil {
			return nil
		}

		if c.limiter != nil && strings.HasPrefix(record, "PRIVMSG ") {
			if err := c.limiter.Wait(c.ctx); err != nil {
				return nil
			}
		}

		c.log.Debug("send", zap.String("record", redact(record)))
		if _, err := io.WriteString(c.conn, record); err != nil {
			c.outbound.close(ErrConnectionClosed)
			c.log.Warn("write failed", zap.Error(err))
			return fmt.Errorf("write: %w", err)
		}
	}
}

// Send queues a raw record. The record must carry its own terminator.
func (c *Conn) Send(record string) error {
	if err := c.outbound.push(record); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionClosed, err)
	}
	return nil
}

// Next returns the next parsed message, or nil when none is queued. Once the
// connection is closed and the queue drained it returns ErrConnectionClosed.
func (c *Conn) Next() (*Message, error) {
	msg, ok, err := c.inbound.tryPop()
	if ok {
		return msg, nil
	}
	return nil, err
}

// wait blocks for the next parsed message.
func (c *Conn) wait(ctx context.Context) (*Message, error) {
	return c.inbound.pop(ctx)
}

// Close stops accepting records, gives the writer a moment to flush what is
// queued, then closes the socket and waits for both loops to exit.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.outbound.close(ErrConnectionClosed)

		select {
		case <-c.writerDone:
		case <-time.After(drainTimeout):
			c.log.Warn("outbound queue not drained before close")
		}

		c.cancel()
		c.closeErr = c.conn.Close()

		if err := c.group.Wait(); err != nil {
			c.log.Debug("loop exited with error", zap.Error(err))
		}
	})
	return c.closeErr
}

func redact(record string) string {
	if strings.HasPrefix(record, "PASS ") {
		return "PASS oauth:***\r\n"
	}
	return record
}
