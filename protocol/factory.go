package protocol

import (
	"errors"

	"github.com/mcnet-go/mcnet/packet"
)

var (
	// ErrUnrecognizedPacket means a complete frame carried an id the
	// catalogue does not know. The frame is well formed, just unknown.
	ErrUnrecognizedPacket = errors.New("mcnet: unrecognized packet id")
	// ErrTruncatedPacket means a complete frame's body ended before the
	// packet's fields did. Unlike an underrun this cannot heal with more
	// bytes; the frame itself is malformed.
	ErrTruncatedPacket = errors.New("mcnet: packet truncated inside frame")
)

// CreatePacket decodes one frame's packet bytes into a typed packet for
// the given protocol state.
func CreatePacket(state State, buf *packet.Buffer) (InboundPacket, error) {
	id, err := packet.ReadVarInt(buf)
	if err != nil {
		return nil, ErrTruncatedPacket
	}

	var p InboundPacket
	switch state {
	case StateLogin:
		switch id {
		case LoginDisconnect:
			p = NewLoginDisconnect()
		case LoginEncryptionRequest:
			p = &EncryptionRequest{}
		case LoginSuccess:
			p = &LoginSuccessPacket{}
		case LoginSetCompression:
			p = NewLoginSetCompression()
		}
	case StatePlay:
		switch id {
		case PlayKeepAlive:
			p = &KeepAlive{}
		case PlayJoinGame:
			p = &JoinGame{}
		case PlayChat:
			p = &Chat{}
		case PlayPositionAndLook:
			p = &PositionAndLook{}
		case PlayDisconnect:
			p = NewPlayDisconnect()
		case PlaySetCompression:
			p = NewPlaySetCompression()
		}
	}
	if p == nil {
		return nil, ErrUnrecognizedPacket
	}
	if err := p.Deserialize(buf); err != nil {
		return nil, ErrTruncatedPacket
	}
	return p, nil
}
