// Package mcnet is the client side network layer of the game protocol:
// it reassembles discrete packets out of an arbitrarily fragmented byte
// stream, layers a negotiable stream cipher and compression scheme around
// the framing, and tracks the login session state machine.
package mcnet

import (
	"github.com/mcnet-go/mcnet/packet"
	"github.com/mcnet-go/mcnet/protocol"
)

// Connection owns one socket, the active cipher and compression
// strategies, the accumulation buffer and the protocol state. It is
// driven externally: the owner calls Pump repeatedly; nothing here spawns
// goroutines or blocks beyond the socket's poll deadline.
type Connection struct {
	options    Options
	socket     Socket
	dispatcher *Dispatcher
	listeners  []ConnectionListener
	refs       []*HandlerRef

	encrypter  packet.Encrypter
	compressor packet.Compressor
	buffer     *packet.Buffer
	state      protocol.State

	host     string
	port     uint16
	username string
	password string

	reportedDisconnect bool
}

func NewConnection(dispatcher *Dispatcher, opts ...Option) *Connection {
	c := &Connection{
		dispatcher: dispatcher,
		encrypter:  packet.NewNoneEncrypter(),
		compressor: packet.NewNoneCompressor(),
		buffer:     packet.NewBuffer(nil),
		state:      protocol.StateHandshake,
	}
	for _, opt := range opts {
		opt(&c.options)
	}
	c.options.applyDefaults()
	c.socket = c.options.socket

	c.register(protocol.StateLogin, protocol.LoginDisconnect, c.handleDisconnect)
	c.register(protocol.StateLogin, protocol.LoginEncryptionRequest, c.handleEncryptionRequest)
	c.register(protocol.StateLogin, protocol.LoginSuccess, c.handleLoginSuccess)
	c.register(protocol.StateLogin, protocol.LoginSetCompression, c.handleSetCompression)

	c.register(protocol.StatePlay, protocol.PlayKeepAlive, c.handleKeepAlive)
	c.register(protocol.StatePlay, protocol.PlayPositionAndLook, c.handlePositionAndLook)
	c.register(protocol.StatePlay, protocol.PlayDisconnect, c.handleDisconnect)
	c.register(protocol.StatePlay, protocol.PlaySetCompression, c.handleSetCompression)

	return c
}

func (c *Connection) register(state protocol.State, id int32, fn PacketHandler) {
	c.refs = append(c.refs, c.dispatcher.RegisterHandler(state, id, fn))
}

// Close deregisters the connection and closes its socket.
func (c *Connection) Close() {
	for _, ref := range c.refs {
		c.dispatcher.UnregisterHandler(ref)
	}
	c.refs = nil
	c.socket.Disconnect()
}

func (c *Connection) State() protocol.State {
	return c.state
}

func (c *Connection) Dispatcher() *Dispatcher {
	return c.dispatcher
}

func (c *Connection) Socket() Socket {
	return c.socket
}

// Connect dials the server, trying each resolved address in order.
func (c *Connection) Connect(host string, port uint16) error {
	c.host = host
	c.port = port
	if err := c.socket.Connect(host, port); err != nil {
		return err
	}
	c.notifySocketState(c.socket.Status())
	return nil
}

// Login sends the handshake and login start packets and caches the
// credentials for the authentication exchange that follows.
func (c *Connection) Login(username, password string) error {
	hs := &protocol.Handshake{
		ProtocolVersion: c.options.protocolVersion,
		Host:            c.host,
		Port:            c.port,
		NextState:       protocol.StateLogin,
	}
	if err := c.SendPacket(hs); err != nil {
		return err
	}
	if err := c.SendPacket(&protocol.LoginStart{Username: username}); err != nil {
		return err
	}
	c.username = username
	c.password = password
	c.state = protocol.StateLogin
	return nil
}

// SendPacket serializes, compresses, frames and encrypts one packet.
// Encryption is the outermost layer on the wire.
func (c *Connection) SendPacket(p protocol.OutboundPacket) error {
	body, err := c.compressor.Compress(p.Serialize())
	if err != nil {
		return err
	}
	framed := packet.AppendVarInt(make([]byte, 0, packet.MaxVarIntLen+len(body)), int32(len(body)))
	framed = append(framed, body...)
	return c.socket.Send(c.encrypter.Encrypt(framed))
}

// Pump runs one receive cycle: read a bounded chunk, decrypt it into the
// accumulation buffer, then extract and dispatch every complete frame.
// Partial frames stay buffered for the next call; no byte is ever lost
// or consumed twice. Frame level problems never escape this method.
func (c *Connection) Pump() {
	if c.socket.Status() != SocketConnected {
		if !c.reportedDisconnect {
			c.reportedDisconnect = true
			c.notifySocketState(c.socket.Status())
		}
		return
	}

	data, err := c.socket.Receive(c.options.chunkSize)
	if err != nil {
		getLogger().Errorf("receive: %v", err)
		return
	}
	if c.socket.Status() != SocketConnected {
		c.reportedDisconnect = true
		c.notifySocketState(c.socket.Status())
		return
	}
	if len(data) == 0 {
		return
	}

	c.buffer.Append(c.encrypter.Decrypt(data))

	for c.buffer.Remaining() > 0 {
		if !c.extractFrame() {
			break
		}
	}

	if c.buffer.Finished() {
		c.buffer = packet.NewBuffer(nil)
	} else if c.buffer.ReadOffset() != 0 {
		c.buffer = c.buffer.Suffix(c.buffer.ReadOffset())
	}
}

// extractFrame attempts to consume one complete frame from the
// accumulation buffer. It returns false when the buffer holds only a
// partial frame, leaving the cursor exactly where the frame starts.
func (c *Connection) extractFrame() bool {
	start := c.buffer.ReadOffset()

	length, err := packet.ReadVarInt(c.buffer)
	if err == packet.ErrUnderrun {
		return false
	}
	if err != nil {
		// The stream can never resynchronize after a malformed length.
		c.fail(ErrMalformedFrame)
		return false
	}
	if length < 0 {
		c.fail(ErrMalformedFrame)
		return false
	}
	if length > packet.MaxFrameLength {
		c.fail(ErrFrameTooLarge)
		return false
	}
	if c.buffer.Remaining() < int(length) {
		c.buffer.SetReadOffset(start)
		return false
	}

	// The frame is complete: whatever happens below, exactly this frame
	// gets consumed.
	frameEnd := c.buffer.ReadOffset() + int(length)
	defer c.buffer.SetReadOffset(frameEnd)

	data, err := c.compressor.DecompressFrame(c.buffer, length)
	if err != nil {
		getLogger().Infof("drop frame: %v", err)
		return true
	}

	state := c.state
	pkt, err := protocol.CreatePacket(state, packet.NewBuffer(data))
	if err != nil {
		if IsFrameLocalError(err) {
			getLogger().Infof("drop packet in state %v: %v", state, err)
			return true
		}
		getLogger().Errorf("create packet: %v", err)
		return true
	}
	c.dispatcher.Dispatch(state, pkt)
	return true
}

func (c *Connection) fail(err error) {
	getLogger().Errorf("unrecoverable stream error, closing: %v", err)
	c.socket.Disconnect()
	c.reportedDisconnect = true
	c.notifySocketState(c.socket.Status())
}

func (c *Connection) handleDisconnect(p protocol.InboundPacket) {
	d := p.(*protocol.Disconnect)
	c.socket.Disconnect()
	c.reportedDisconnect = true
	c.notifySocketState(c.socket.Status())

	// Before play this is a failed login, not just a dropped socket.
	if c.state != protocol.StatePlay {
		c.notifyLogin(false, d.Reason)
	}
}

func (c *Connection) handleEncryptionRequest(p protocol.InboundPacket) {
	req := p.(*protocol.EncryptionRequest)

	enc, secret, resp, err := packet.NewCFB8FromRequest(req.PublicKey, req.VerifyToken)
	if err != nil {
		getLogger().Errorf("encryption request: %v", err)
		c.notifyAuthentication(false, err.Error())
		return
	}

	c.authenticateClient(req.ServerID, secret, req.PublicKey)

	// The response still travels under the old cipher; only after it is
	// on the wire does the stream cipher take over.
	out := &protocol.EncryptionResponse{
		SharedSecret: resp.SharedSecret,
		VerifyToken:  resp.VerifyToken,
	}
	if err := c.SendPacket(out); err != nil {
		getLogger().Errorf("send encryption response: %v", err)
		return
	}
	c.encrypter = enc
}

// authenticateClient runs the two step identity exchange and reports the
// aggregate outcome through one notification.
func (c *Connection) authenticateClient(serverID string, sharedSecret, publicKey []byte) {
	if c.options.authClient == nil {
		c.notifyAuthentication(true, "")
		return
	}

	success := true
	var message string
	if err := c.options.authClient.Authenticate(c.username, c.password); err != nil {
		success = false
		message = err.Error()
	}
	if err := c.options.authClient.JoinServer(serverID, sharedSecret, publicKey); err != nil {
		success = false
		message = err.Error()
	}
	c.notifyAuthentication(success, message)
}

func (c *Connection) handleLoginSuccess(p protocol.InboundPacket) {
	c.state = protocol.StatePlay
	c.notifyLogin(true, "")
}

func (c *Connection) handleSetCompression(p protocol.InboundPacket) {
	sc := p.(*protocol.SetCompression)
	old := c.compressor
	c.compressor = packet.NewZlibCompressor(int(sc.Threshold))
	old.Close()
}

func (c *Connection) handleKeepAlive(p protocol.InboundPacket) {
	ka := p.(*protocol.KeepAlive)
	if err := c.SendPacket(&protocol.KeepAliveServerbound{AliveID: ka.AliveID}); err != nil {
		getLogger().Errorf("keep alive echo: %v", err)
	}
}

func (c *Connection) handlePositionAndLook(p protocol.InboundPacket) {
	pl := p.(*protocol.PositionAndLook)

	// Echo the position back to confirm it, then request the respawn the
	// server waits for before streaming world state.
	echo := &protocol.PositionAndLookServerbound{
		X: pl.X, Y: pl.Y, Z: pl.Z,
		Yaw: pl.Yaw, Pitch: pl.Pitch,
		OnGround: true,
	}
	if err := c.SendPacket(echo); err != nil {
		getLogger().Errorf("position echo: %v", err)
		return
	}
	status := &protocol.ClientStatus{Action: protocol.ActionPerformRespawn}
	if err := c.SendPacket(status); err != nil {
		getLogger().Errorf("client status: %v", err)
	}
}
