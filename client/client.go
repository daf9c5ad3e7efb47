// Package client drives a connection: the polling loop the core network
// layer expects an external owner to run.
package client

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcnet-go/mcnet"
)

// Client owns one connection and pumps it on a fixed interval. The
// connection is single threaded: the run loop drives both the pump and
// the tick callback, so a tick may send packets without racing the
// pump's own writes.
type Client struct {
	conn       *mcnet.Connection
	dispatcher *mcnet.Dispatcher
	options    options
	cancel     context.CancelFunc
}

func New(opts ...Option) *Client {
	c := &Client{options: defaultOptions()}
	for _, opt := range opts {
		opt(&c.options)
	}
	c.dispatcher = mcnet.NewDispatcher()
	c.conn = mcnet.NewConnection(c.dispatcher, c.options.connOptions...)
	return c
}

func (c *Client) Connection() *mcnet.Connection {
	return c.conn
}

func (c *Client) Dispatcher() *mcnet.Dispatcher {
	return c.dispatcher
}

func (c *Client) Connect(host string, port uint16) error {
	return c.conn.Connect(host, port)
}

func (c *Client) Login(username, password string) error {
	return c.conn.Login(username, password)
}

// Run pumps the connection until the context is canceled, the socket
// drops, or Stop is called. The tick callback, when set, is interleaved
// with the pump on the same goroutine; it may use the connection freely.
func (c *Client) Run(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	defer c.cancel()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		poll := time.NewTicker(c.options.pollInterval)
		defer poll.Stop()

		// A nil channel never fires, so the select degenerates to pump
		// only when no tick callback is installed.
		var tickC <-chan time.Time
		if c.options.onTick != nil {
			tick := time.NewTicker(c.options.tickInterval)
			defer tick.Stop()
			tickC = tick.C
		}

		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-poll.C:
				c.conn.Pump()
				if c.conn.Socket().Status() != mcnet.SocketConnected {
					return mcnet.ErrNotConnected
				}
			case now := <-tickC:
				c.options.onTick(now.Sub(last))
				last = now
			}
		}
	})

	err := group.Wait()
	c.conn.Close()
	return err
}

// Stop ends a running Run call. Safe to call from listeners or handlers.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}
