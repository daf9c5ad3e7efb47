package mcnet

import (
	"time"

	"github.com/mcnet-go/mcnet/auth"
	"github.com/mcnet-go/mcnet/protocol"
)

const (
	defaultChunkSize = 4096
)

type Options struct {
	socket          Socket
	authClient      *auth.Client
	protocolVersion int32
	chunkSize       int
	dialTimeout     time.Duration
}

type Option func(*Options)

// WithSocket injects a transport, replacing the default TCP socket.
func WithSocket(s Socket) Option {
	return func(o *Options) {
		o.socket = s
	}
}

// WithAuthClient sets the identity service client used during encryption
// negotiation. Without one the connection skips remote authentication.
func WithAuthClient(a *auth.Client) Option {
	return func(o *Options) {
		o.authClient = a
	}
}

func WithProtocolVersion(v int32) Option {
	return func(o *Options) {
		o.protocolVersion = v
	}
}

// WithChunkSize bounds how many bytes a single pump call reads.
func WithChunkSize(n int) Option {
	return func(o *Options) {
		o.chunkSize = n
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.dialTimeout = d
	}
}

func (o *Options) applyDefaults() {
	if o.protocolVersion == 0 {
		o.protocolVersion = protocol.Version
	}
	if o.chunkSize <= 0 {
		o.chunkSize = defaultChunkSize
	}
	if o.dialTimeout <= 0 {
		o.dialTimeout = defaultDialTimeout
	}
	if o.socket == nil {
		s := NewTCPSocket()
		s.SetDialTimeout(o.dialTimeout)
		o.socket = s
	}
}
