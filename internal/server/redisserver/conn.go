package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/yndnr/meshkv/internal/command"
	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/internal/telemetry/logger"
	"github.com/yndnr/meshkv/pkg/resp"
)

// Conn is one client connection.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer

	closed atomic.Bool
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
	}
}

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// clientIP extracts the host part used as the rate-limit key.
func clientIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer c.Close()

	remote := c.RemoteAddr().String()
	sess := s.sessions.Create(remote)
	defer s.sessions.Remove(sess.ID)

	s.observer.ConnOpened()
	defer s.observer.ConnClosed()

	ip := clientIP(c.RemoteAddr())
	limiter := s.limiters.Acquire(ip)
	if limiter != nil {
		defer s.limiters.Release(ip)
	}

	log := logger.ForSession(s.logger, sess.ID, remote)
	log.Debug("connection opened")
	defer log.Debug("connection closed")

	readTimeout := s.cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := s.cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// Between commands the connection may idle up to IdleTimeout.
		var idle time.Time
		if s.cfg.IdleTimeout > 0 {
			idle = time.Now().Add(s.cfg.IdleTimeout)
		}
		if err := c.netConn.SetReadDeadline(idle); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			s.logReadError(log, err)
			return
		}

		// Once a command has started it must arrive within ReadTimeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}
		args, err := resp.ReadCommand(c.br)
		if err != nil {
			if errors.Is(err, resp.ErrProtocol) || errors.Is(err, resp.ErrLimitExceeded) {
				log.Warn("protocol error", "error", err)
				_ = c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = resp.WriteError(c.bw, "ERR protocol error")
				_ = c.bw.Flush()
				return
			}
			s.logReadError(log, err)
			return
		}
		if len(args) == 0 {
			continue
		}

		name := resp.NormalizeCommandName(args[0])
		var reply resp.Reply
		if limiter != nil && !limiter.Allow() {
			reply = command.ErrorReply(domain.ErrRateLimited)
		} else {
			reply = s.dispatcher.Dispatch(sess.ID, name, args[1:])
		}
		if resp.IsError(reply) {
			log.Debug("command rejected", "command", logger.RedactCommand(name, args[1:]))
		}

		if err := c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := reply.WriteTo(c.bw); err != nil {
			log.Debug("write reply failed", "error", err)
			return
		}
		// Keep pipelined replies batched until the input buffer drains.
		if c.br.Buffered() == 0 {
			if err := c.bw.Flush(); err != nil {
				log.Debug("flush reply failed", "error", err)
				return
			}
		}

		if name == "QUIT" {
			_ = c.bw.Flush()
			return
		}
	}
}

func (s *Server) logReadError(log logger.Logger, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		log.Debug("connection timed out")
		return
	}
	log.Debug("connection read error", "error", err)
}
