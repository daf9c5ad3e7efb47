// Package protocol holds the wire catalogue: connection states, packet
// ids and the packets the connection itself understands.
package protocol

// Version is the protocol version sent in the handshake.
const Version = 47

type State int32

const (
	StateHandshake State = iota
	StateStatus    State = 1
	StateLogin     State = 2
	StatePlay      State = 3
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateStatus:
		return "status"
	case StateLogin:
		return "login"
	case StatePlay:
		return "play"
	}
	return "unknown"
}

// Clientbound packet ids, by state.
const (
	LoginDisconnect        int32 = 0x00
	LoginEncryptionRequest int32 = 0x01
	LoginSuccess           int32 = 0x02
	LoginSetCompression    int32 = 0x03

	PlayKeepAlive       int32 = 0x00
	PlayJoinGame        int32 = 0x01
	PlayChat            int32 = 0x02
	PlayPositionAndLook int32 = 0x08
	PlayDisconnect      int32 = 0x40
	PlaySetCompression  int32 = 0x46
)

// Serverbound packet ids.
const (
	ServerboundHandshake          int32 = 0x00
	ServerboundLoginStart         int32 = 0x00
	ServerboundEncryptionResponse int32 = 0x01

	ServerboundKeepAlive       int32 = 0x00
	ServerboundPositionAndLook int32 = 0x06
	ServerboundClientStatus    int32 = 0x16
)
