package mcnet

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

type SocketStatus int32

const (
	SocketDisconnected SocketStatus = iota
	SocketConnecting   SocketStatus = 1
	SocketConnected    SocketStatus = 2
)

func (s SocketStatus) String() string {
	switch s {
	case SocketDisconnected:
		return "disconnected"
	case SocketConnecting:
		return "connecting"
	case SocketConnected:
		return "connected"
	}
	return "unknown"
}

// Socket is the transport under a connection. Receive must not block
// beyond its poll deadline; a nil or empty result with a nil error means
// no data is available right now.
type Socket interface {
	Connect(host string, port uint16) error
	Send(data []byte) error
	Receive(maxBytes int) ([]byte, error)
	Disconnect() error
	Status() SocketStatus
}

// Resolver turns a hostname into candidate addresses. Connection attempts
// try each in order and succeed on the first that accepts.
type Resolver interface {
	Resolve(host string) ([]string, error)
}

type dnsResolver struct{}

func (dnsResolver) Resolve(host string) ([]string, error) {
	addrs, err := net.DefaultResolver.LookupHost(context.Background(), host)
	if err != nil {
		return nil, errors.Wrapf(err, "mcnet: resolve %v", host)
	}
	return addrs, nil
}

const (
	defaultDialTimeout = 5 * time.Second
	defaultPollTimeout = time.Millisecond
)

// TCPSocket is the default Socket. Non-blocking receives are emulated
// with a short read deadline; deadline expiry reports zero bytes, not an
// error.
type TCPSocket struct {
	conn        net.Conn
	status      int32
	dialTimeout time.Duration
	pollTimeout time.Duration
	resolver    Resolver
}

func NewTCPSocket() *TCPSocket {
	return &TCPSocket{
		dialTimeout: defaultDialTimeout,
		pollTimeout: defaultPollTimeout,
		resolver:    dnsResolver{},
	}
}

func (s *TCPSocket) SetDialTimeout(d time.Duration) {
	s.dialTimeout = d
}

func (s *TCPSocket) SetResolver(r Resolver) {
	s.resolver = r
}

func (s *TCPSocket) Connect(host string, port uint16) error {
	s.setStatus(SocketConnecting)

	var addrs []string
	if net.ParseIP(host) != nil {
		addrs = []string{host}
	} else {
		var err error
		addrs, err = s.resolver.Resolve(host)
		if err != nil {
			s.setStatus(SocketDisconnected)
			return err
		}
		if len(addrs) == 0 {
			s.setStatus(SocketDisconnected)
			return ErrResolveFailed
		}
	}

	portStr := strconv.Itoa(int(port))
	var lastErr error
	for _, addr := range addrs {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, portStr), s.dialTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		s.conn = conn
		s.setStatus(SocketConnected)
		return nil
	}
	s.setStatus(SocketDisconnected)
	if lastErr != nil {
		return errors.Wrap(lastErr, "mcnet: connect")
	}
	return ErrConnectFailed
}

func (s *TCPSocket) Send(data []byte) error {
	if s.Status() != SocketConnected {
		return ErrNotConnected
	}
	if _, err := s.conn.Write(data); err != nil {
		s.dropConn()
		return errors.Wrap(err, "mcnet: send")
	}
	return nil
}

func (s *TCPSocket) Receive(maxBytes int) ([]byte, error) {
	if s.Status() != SocketConnected {
		return nil, ErrNotConnected
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(s.pollTimeout)); err != nil {
		s.dropConn()
		return nil, errors.Wrap(err, "mcnet: receive")
	}
	buf := make([]byte, maxBytes)
	n, err := s.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return buf[:n], nil
		}
		// EOF or a hard error; the status carries the news.
		s.dropConn()
		return buf[:n], nil
	}
	return buf[:n], nil
}

func (s *TCPSocket) Disconnect() error {
	if s.conn == nil {
		s.setStatus(SocketDisconnected)
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.setStatus(SocketDisconnected)
	return err
}

func (s *TCPSocket) Status() SocketStatus {
	return SocketStatus(atomic.LoadInt32(&s.status))
}

func (s *TCPSocket) setStatus(st SocketStatus) {
	atomic.StoreInt32(&s.status, int32(st))
}

func (s *TCPSocket) dropConn() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.setStatus(SocketDisconnected)
}
