package mcnet

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"testing"

	"github.com/mcnet-go/mcnet/packet"
	"github.com/mcnet-go/mcnet/protocol"
)

// fakeSocket is a scripted transport: inbound chunks are queued ahead of
// time, outbound writes are captured.
type fakeSocket struct {
	inbound [][]byte
	sent    [][]byte
	status  SocketStatus
}

func (s *fakeSocket) Connect(host string, port uint16) error {
	s.status = SocketConnected
	return nil
}

func (s *fakeSocket) Send(data []byte) error {
	if s.status != SocketConnected {
		return ErrNotConnected
	}
	d := make([]byte, len(data))
	copy(d, data)
	s.sent = append(s.sent, d)
	return nil
}

func (s *fakeSocket) Receive(maxBytes int) ([]byte, error) {
	if s.status != SocketConnected {
		return nil, ErrNotConnected
	}
	if len(s.inbound) == 0 {
		return nil, nil
	}
	chunk := s.inbound[0]
	if len(chunk) > maxBytes {
		s.inbound[0] = chunk[maxBytes:]
		return chunk[:maxBytes], nil
	}
	s.inbound = s.inbound[1:]
	return chunk, nil
}

func (s *fakeSocket) Disconnect() error {
	s.status = SocketDisconnected
	return nil
}

func (s *fakeSocket) Status() SocketStatus {
	return s.status
}

func (s *fakeSocket) queue(chunks ...[]byte) {
	s.inbound = append(s.inbound, chunks...)
}

// recordListener captures every notification in order.
type recordListener struct {
	socketStates []SocketStatus
	loginResults []bool
	loginErrs    []string
	authResults  []bool
}

func (l *recordListener) OnSocketStateChange(status SocketStatus) {
	l.socketStates = append(l.socketStates, status)
}

func (l *recordListener) OnLogin(success bool, message string) {
	l.loginResults = append(l.loginResults, success)
	l.loginErrs = append(l.loginErrs, message)
}

func (l *recordListener) OnAuthentication(success bool, message string) {
	l.authResults = append(l.authResults, success)
}

// frame builds one wire frame from packet bytes: compressor encoding plus
// the outer length prefix.
func frame(t *testing.T, comp packet.Compressor, body []byte) []byte {
	t.Helper()
	enc, err := comp.Compress(body)
	if err != nil {
		t.Fatalf("compress err: %v", err)
	}
	out := packet.AppendVarInt(nil, int32(len(enc)))
	return append(out, enc...)
}

func loginSuccessBody(uuid, name string) []byte {
	out := packet.AppendVarInt(nil, protocol.LoginSuccess)
	out = protocol.AppendString(out, uuid)
	return protocol.AppendString(out, name)
}

func chatBody(msg string) []byte {
	out := packet.AppendVarInt(nil, protocol.PlayChat)
	out = protocol.AppendString(out, msg)
	return append(out, 0)
}

func keepAliveBody(id int32) []byte {
	out := packet.AppendVarInt(nil, protocol.PlayKeepAlive)
	return packet.AppendVarInt(out, id)
}

func disconnectBody(id int32, reason string) []byte {
	out := packet.AppendVarInt(nil, id)
	return protocol.AppendString(out, reason)
}

func setCompressionBody(threshold int32) []byte {
	out := packet.AppendVarInt(nil, protocol.LoginSetCompression)
	return packet.AppendVarInt(out, threshold)
}

// newTestConnection returns a connection in the login state with its
// handshake traffic already drained from the fake socket.
func newTestConnection(t *testing.T) (*Connection, *fakeSocket, *recordListener) {
	t.Helper()
	sock := &fakeSocket{}
	conn := NewConnection(NewDispatcher(), WithSocket(sock))
	listener := &recordListener{}
	conn.AddListener(listener)

	if err := conn.Connect("localhost", 25565); err != nil {
		t.Fatalf("connect err: %v", err)
	}
	if err := conn.Login("tester", "hunter2"); err != nil {
		t.Fatalf("login err: %v", err)
	}
	sock.sent = nil
	listener.socketStates = nil
	return conn, sock, listener
}

func toPlay(t *testing.T, conn *Connection, sock *fakeSocket) {
	t.Helper()
	sock.queue(frame(t, packet.NewNoneCompressor(), loginSuccessBody("uuid-1", "tester")))
	conn.Pump()
	if conn.State() != protocol.StatePlay {
		t.Fatalf("state %v after login success, want play", conn.State())
	}
}

func TestLoginSendsHandshakeAndLoginStart(t *testing.T) {
	sock := &fakeSocket{}
	conn := NewConnection(NewDispatcher(), WithSocket(sock))
	if err := conn.Connect("localhost", 25565); err != nil {
		t.Errorf("connect err: %v", err)
		return
	}
	if err := conn.Login("tester", "hunter2"); err != nil {
		t.Errorf("login err: %v", err)
		return
	}
	if len(sock.sent) != 2 {
		t.Errorf("sent %v packets, want 2", len(sock.sent))
		return
	}
	if conn.State() != protocol.StateLogin {
		t.Errorf("state %v, want login", conn.State())
	}

	// Second write is the login start frame: length prefix, zero size
	// marker, id, then the username.
	buf := packet.NewBuffer(sock.sent[1])
	if _, err := packet.ReadVarInt(buf); err != nil {
		t.Errorf("length prefix err: %v", err)
		return
	}
	marker, _ := packet.ReadVarInt(buf)
	if marker != 0 {
		t.Errorf("size marker %v, want 0", marker)
	}
	id, _ := packet.ReadVarInt(buf)
	if id != protocol.ServerboundLoginStart {
		t.Errorf("packet id %v, want login start", id)
	}
	name, _ := protocol.ReadString(buf)
	if name != "tester" {
		t.Errorf("username %q", name)
	}
}

func TestLoginSuccessTransition(t *testing.T) {
	conn, sock, listener := newTestConnection(t)
	toPlay(t, conn, sock)
	if len(listener.loginResults) != 1 || !listener.loginResults[0] {
		t.Errorf("login notifications %v, want one success", listener.loginResults)
	}
}

func TestDisconnectBeforePlayReportsLoginFailure(t *testing.T) {
	conn, sock, listener := newTestConnection(t)
	sock.queue(frame(t, packet.NewNoneCompressor(), disconnectBody(protocol.LoginDisconnect, "banned")))
	conn.Pump()

	if len(listener.loginResults) != 1 || listener.loginResults[0] {
		t.Errorf("login notifications %v, want one failure", listener.loginResults)
		return
	}
	if listener.loginErrs[0] != "banned" {
		t.Errorf("login failure message %q", listener.loginErrs[0])
	}
	if len(listener.socketStates) != 1 || listener.socketStates[0] != SocketDisconnected {
		t.Errorf("socket notifications %v", listener.socketStates)
	}
	if conn.State() == protocol.StatePlay {
		t.Errorf("state advanced to play after disconnect")
	}
}

func TestDisconnectInPlayReportsOnlySocketState(t *testing.T) {
	conn, sock, listener := newTestConnection(t)
	toPlay(t, conn, sock)
	listener.loginResults = nil

	sock.queue(frame(t, packet.NewNoneCompressor(), disconnectBody(protocol.PlayDisconnect, "shutdown")))
	conn.Pump()

	if len(listener.loginResults) != 0 {
		t.Errorf("login notifications %v after play disconnect, want none", listener.loginResults)
	}
	if len(listener.socketStates) != 1 || listener.socketStates[0] != SocketDisconnected {
		t.Errorf("socket notifications %v", listener.socketStates)
	}

	// The session is over; further pumps are no-ops and do not repeat
	// the notification.
	conn.Pump()
	conn.Pump()
	if len(listener.socketStates) != 1 {
		t.Errorf("disconnect notified %v times", len(listener.socketStates))
	}
}

func TestPumpFragmentationEveryBoundary(t *testing.T) {
	wire := frame(t, packet.NewNoneCompressor(), chatBody("hello world"))

	for cut := 1; cut < len(wire); cut++ {
		conn, sock, _ := newTestConnection(t)
		toPlay(t, conn, sock)

		var got []string
		conn.Dispatcher().RegisterHandler(protocol.StatePlay, protocol.PlayChat, func(p protocol.InboundPacket) {
			got = append(got, p.(*protocol.Chat).Message)
		})

		sock.queue(wire[:cut])
		conn.Pump()
		if len(got) != 0 {
			t.Errorf("cut %v: dispatched on partial frame", cut)
		}
		sock.queue(wire[cut:])
		conn.Pump()

		if len(got) != 1 || got[0] != "hello world" {
			t.Errorf("cut %v: dispatched %v, want one %q", cut, got, "hello world")
		}
	}
}

func TestPumpMultiFrameBatch(t *testing.T) {
	conn, sock, _ := newTestConnection(t)
	toPlay(t, conn, sock)

	var got []string
	conn.Dispatcher().RegisterHandler(protocol.StatePlay, protocol.PlayChat, func(p protocol.InboundPacket) {
		got = append(got, p.(*protocol.Chat).Message)
	})

	want := []string{"one", "two", "three", "four", "five"}
	var chunk []byte
	for _, m := range want {
		chunk = append(chunk, frame(t, packet.NewNoneCompressor(), chatBody(m))...)
	}
	sock.queue(chunk)
	conn.Pump()

	if len(got) != len(want) {
		t.Errorf("dispatched %v packets, want %v", len(got), len(want))
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("packet %v: %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeepAliveEchoBeforeNextFrame(t *testing.T) {
	conn, sock, _ := newTestConnection(t)
	toPlay(t, conn, sock)

	sentAtDispatch := -1
	conn.Dispatcher().RegisterHandler(protocol.StatePlay, protocol.PlayChat, func(p protocol.InboundPacket) {
		sentAtDispatch = len(sock.sent)
	})

	chunk := frame(t, packet.NewNoneCompressor(), keepAliveBody(777))
	chunk = append(chunk, frame(t, packet.NewNoneCompressor(), chatBody("after"))...)
	sock.queue(chunk)
	conn.Pump()

	if len(sock.sent) != 1 {
		t.Errorf("sent %v packets, want 1 echo", len(sock.sent))
		return
	}
	if sentAtDispatch != 1 {
		t.Errorf("echo not on the wire before the next frame was processed")
	}

	// The echo carries the same alive id.
	buf := packet.NewBuffer(sock.sent[0])
	packet.ReadVarInt(buf) // length
	packet.ReadVarInt(buf) // size marker
	id, _ := packet.ReadVarInt(buf)
	alive, _ := packet.ReadVarInt(buf)
	if id != protocol.ServerboundKeepAlive || alive != 777 {
		t.Errorf("echo id %v alive %v, want %v/777", id, alive, protocol.ServerboundKeepAlive)
	}
}

func TestPositionAndLookAcknowledged(t *testing.T) {
	conn, sock, _ := newTestConnection(t)
	toPlay(t, conn, sock)

	body := packet.AppendVarInt(nil, protocol.PlayPositionAndLook)
	body = protocol.AppendFloat64(body, 100.5)
	body = protocol.AppendFloat64(body, 64)
	body = protocol.AppendFloat64(body, -20.25)
	body = protocol.AppendFloat32(body, 90)
	body = protocol.AppendFloat32(body, -10)
	body = append(body, 0)
	sock.queue(frame(t, packet.NewNoneCompressor(), body))
	conn.Pump()

	// Position echo plus the respawn request.
	if len(sock.sent) != 2 {
		t.Errorf("sent %v packets, want 2", len(sock.sent))
		return
	}
	buf := packet.NewBuffer(sock.sent[0])
	packet.ReadVarInt(buf)
	packet.ReadVarInt(buf)
	id, _ := packet.ReadVarInt(buf)
	if id != protocol.ServerboundPositionAndLook {
		t.Errorf("first response id %v, want position echo", id)
	}
	x, _ := protocol.ReadFloat64(buf)
	if x != 100.5 {
		t.Errorf("echoed x %v, want 100.5", x)
	}
}

func TestSetCompressionAppliesToNextFrameInSamePump(t *testing.T) {
	conn, sock, listener := newTestConnection(t)

	// Both frames arrive in one receive: the compression announcement,
	// then a login success already encoded under the new threshold.
	chunk := frame(t, packet.NewNoneCompressor(), setCompressionBody(16))
	chunk = append(chunk, frame(t, packet.NewZlibCompressor(16), loginSuccessBody("0123456789abcdef0123", "tester"))...)
	sock.queue(chunk)
	conn.Pump()

	if conn.State() != protocol.StatePlay {
		t.Errorf("state %v, want play; compressed frame not parsed under new strategy", conn.State())
	}
	if len(listener.loginResults) != 1 || !listener.loginResults[0] {
		t.Errorf("login notifications %v", listener.loginResults)
	}
}

func TestUnrecognizedPacketDoesNotWedgePump(t *testing.T) {
	conn, sock, _ := newTestConnection(t)
	toPlay(t, conn, sock)

	var got []string
	conn.Dispatcher().RegisterHandler(protocol.StatePlay, protocol.PlayChat, func(p protocol.InboundPacket) {
		got = append(got, p.(*protocol.Chat).Message)
	})

	unknown := packet.AppendVarInt(nil, 0x7f)
	unknown = append(unknown, 1, 2, 3)
	chunk := frame(t, packet.NewNoneCompressor(), unknown)
	chunk = append(chunk, frame(t, packet.NewNoneCompressor(), chatBody("still here"))...)
	sock.queue(chunk)
	conn.Pump()
	conn.Pump()

	if len(got) != 1 || got[0] != "still here" {
		t.Errorf("dispatched %v, want the frame after the unknown one", got)
	}
	if sock.Status() != SocketConnected {
		t.Errorf("unknown packet id dropped the connection")
	}
}

func TestMalformedLengthPrefixClosesSocket(t *testing.T) {
	conn, sock, listener := newTestConnection(t)

	// Five continuation bytes can never terminate a length prefix, and
	// the stream cannot resynchronize past them.
	sock.queue([]byte{0xff, 0xff, 0xff, 0xff, 0xff})
	conn.Pump()

	if sock.Status() != SocketDisconnected {
		t.Errorf("socket still connected after malformed length prefix")
	}
	if len(listener.socketStates) != 1 || listener.socketStates[0] != SocketDisconnected {
		t.Errorf("socket notifications %v, want one disconnect", listener.socketStates)
	}

	// Later pumps see the dead socket and stay silent.
	conn.Pump()
	conn.Pump()
	if len(listener.socketStates) != 1 {
		t.Errorf("disconnect notified %v times", len(listener.socketStates))
	}
}

func TestNegativeLengthPrefixClosesSocket(t *testing.T) {
	conn, sock, listener := newTestConnection(t)

	sock.queue(packet.AppendVarInt(nil, -1))
	conn.Pump()

	if sock.Status() != SocketDisconnected {
		t.Errorf("socket still connected after negative length prefix")
	}
	if len(listener.socketStates) != 1 || listener.socketStates[0] != SocketDisconnected {
		t.Errorf("socket notifications %v, want one disconnect", listener.socketStates)
	}
}

func TestOversizedLengthPrefixClosesSocket(t *testing.T) {
	conn, sock, listener := newTestConnection(t)

	sock.queue(packet.AppendVarInt(nil, packet.MaxFrameLength+1))
	conn.Pump()

	if sock.Status() != SocketDisconnected {
		t.Errorf("socket still connected after oversized length prefix")
	}
	if len(listener.socketStates) != 1 || listener.socketStates[0] != SocketDisconnected {
		t.Errorf("socket notifications %v, want one disconnect", listener.socketStates)
	}
}

func TestEncryptionNegotiation(t *testing.T) {
	conn, sock, listener := newTestConnection(t)

	serverKey, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generate server key err: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&serverKey.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key err: %v", err)
	}
	token := []byte{9, 8, 7, 6}

	body := packet.AppendVarInt(nil, protocol.LoginEncryptionRequest)
	body = protocol.AppendString(body, "")
	body = protocol.AppendByteArray(body, pubDER)
	body = protocol.AppendByteArray(body, token)
	sock.queue(frame(t, packet.NewNoneCompressor(), body))
	conn.Pump()

	// Without an auth client the exchange reports success locally.
	if len(listener.authResults) != 1 || !listener.authResults[0] {
		t.Errorf("auth notifications %v, want one success", listener.authResults)
	}

	// The response went out unencrypted and decrypts with the server key.
	if len(sock.sent) != 1 {
		t.Fatalf("sent %v packets, want 1 encryption response", len(sock.sent))
	}
	buf := packet.NewBuffer(sock.sent[0])
	packet.ReadVarInt(buf)
	packet.ReadVarInt(buf)
	id, _ := packet.ReadVarInt(buf)
	if id != protocol.ServerboundEncryptionResponse {
		t.Fatalf("response id %v", id)
	}
	encSecret, _ := protocol.ReadByteArray(buf)
	encToken, _ := protocol.ReadByteArray(buf)
	secret, err := rsa.DecryptPKCS1v15(rand.Reader, serverKey, encSecret)
	if err != nil {
		t.Fatalf("decrypt secret err: %v", err)
	}
	gotToken, err := rsa.DecryptPKCS1v15(rand.Reader, serverKey, encToken)
	if err != nil || !bytes.Equal(gotToken, token) {
		t.Fatalf("verify token mismatch: %v %v", gotToken, err)
	}

	// Traffic from now on only parses under the negotiated stream
	// cipher: an encrypted login success must advance the state.
	serverCipher, err := packet.NewCFB8Encrypter(secret)
	if err != nil {
		t.Fatalf("server cipher err: %v", err)
	}
	wire := frame(t, packet.NewNoneCompressor(), loginSuccessBody("uuid-1", "tester"))
	sock.queue(serverCipher.Encrypt(wire))
	conn.Pump()

	if conn.State() != protocol.StatePlay {
		t.Errorf("state %v after encrypted login success, want play", conn.State())
	}
}

func TestPumpZeroBytesIsNoOp(t *testing.T) {
	conn, sock, listener := newTestConnection(t)
	conn.Pump()
	if len(listener.socketStates) != 0 || len(sock.sent) != 0 {
		t.Errorf("pump with no data produced side effects")
	}
	if conn.State() != protocol.StateLogin {
		t.Errorf("state %v, want login", conn.State())
	}
}
