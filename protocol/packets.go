package protocol

import (
	"github.com/mcnet-go/mcnet/packet"
)

// Packet is one decoded unit of wire data.
type Packet interface {
	ID() int32
}

// InboundPacket decodes itself from packet bytes (after the id).
type InboundPacket interface {
	Packet
	Deserialize(b *packet.Buffer) error
}

// OutboundPacket serializes itself to packet bytes, id included but
// without framing, compression or encryption.
type OutboundPacket interface {
	Packet
	Serialize() []byte
}

// ---- clientbound, login state ----

// Disconnect carries the server's reason for closing the session. The
// same layout is used by the play-state disconnect, only the id differs.
type Disconnect struct {
	id     int32
	Reason string
}

func NewLoginDisconnect() *Disconnect { return &Disconnect{id: LoginDisconnect} }
func NewPlayDisconnect() *Disconnect  { return &Disconnect{id: PlayDisconnect} }

func (p *Disconnect) ID() int32 { return p.id }

func (p *Disconnect) Deserialize(b *packet.Buffer) error {
	var err error
	p.Reason, err = ReadString(b)
	return err
}

// EncryptionRequest starts encryption negotiation: the server's id, its
// public key in DER form and a token the client must echo encrypted.
type EncryptionRequest struct {
	ServerID    string
	PublicKey   []byte
	VerifyToken []byte
}

func (p *EncryptionRequest) ID() int32 { return LoginEncryptionRequest }

func (p *EncryptionRequest) Deserialize(b *packet.Buffer) error {
	var err error
	if p.ServerID, err = ReadString(b); err != nil {
		return err
	}
	if p.PublicKey, err = ReadByteArray(b); err != nil {
		return err
	}
	p.VerifyToken, err = ReadByteArray(b)
	return err
}

type LoginSuccessPacket struct {
	UUID     string
	Username string
}

func (p *LoginSuccessPacket) ID() int32 { return LoginSuccess }

func (p *LoginSuccessPacket) Deserialize(b *packet.Buffer) error {
	var err error
	if p.UUID, err = ReadString(b); err != nil {
		return err
	}
	p.Username, err = ReadString(b)
	return err
}

// SetCompression announces the compression threshold. Sent during login,
// or mid-play on renegotiation.
type SetCompression struct {
	id        int32
	Threshold int32
}

func NewLoginSetCompression() *SetCompression { return &SetCompression{id: LoginSetCompression} }
func NewPlaySetCompression() *SetCompression  { return &SetCompression{id: PlaySetCompression} }

func (p *SetCompression) ID() int32 { return p.id }

func (p *SetCompression) Deserialize(b *packet.Buffer) error {
	var err error
	p.Threshold, err = packet.ReadVarInt(b)
	return err
}

// ---- clientbound, play state ----

type KeepAlive struct {
	AliveID int32
}

func (p *KeepAlive) ID() int32 { return PlayKeepAlive }

func (p *KeepAlive) Deserialize(b *packet.Buffer) error {
	var err error
	p.AliveID, err = packet.ReadVarInt(b)
	return err
}

type JoinGame struct {
	EntityID     int32
	Gamemode     uint8
	Dimension    int8
	Difficulty   uint8
	MaxPlayers   uint8
	LevelType    string
	ReducedDebug bool
}

func (p *JoinGame) ID() int32 { return PlayJoinGame }

func (p *JoinGame) Deserialize(b *packet.Buffer) error {
	var err error
	if p.EntityID, err = ReadInt32(b); err != nil {
		return err
	}
	if p.Gamemode, err = ReadUint8(b); err != nil {
		return err
	}
	if p.Dimension, err = ReadInt8(b); err != nil {
		return err
	}
	if p.Difficulty, err = ReadUint8(b); err != nil {
		return err
	}
	if p.MaxPlayers, err = ReadUint8(b); err != nil {
		return err
	}
	if p.LevelType, err = ReadString(b); err != nil {
		return err
	}
	p.ReducedDebug, err = ReadBool(b)
	return err
}

type Chat struct {
	Message  string
	Position int8
}

func (p *Chat) ID() int32 { return PlayChat }

func (p *Chat) Deserialize(b *packet.Buffer) error {
	var err error
	if p.Message, err = ReadString(b); err != nil {
		return err
	}
	p.Position, err = ReadInt8(b)
	return err
}

// PositionAndLook teleports the client; the server expects the position
// echoed back before it continues streaming world state.
type PositionAndLook struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	Flags      int8
}

func (p *PositionAndLook) ID() int32 { return PlayPositionAndLook }

func (p *PositionAndLook) Deserialize(b *packet.Buffer) error {
	var err error
	if p.X, err = ReadFloat64(b); err != nil {
		return err
	}
	if p.Y, err = ReadFloat64(b); err != nil {
		return err
	}
	if p.Z, err = ReadFloat64(b); err != nil {
		return err
	}
	if p.Yaw, err = ReadFloat32(b); err != nil {
		return err
	}
	if p.Pitch, err = ReadFloat32(b); err != nil {
		return err
	}
	p.Flags, err = ReadInt8(b)
	return err
}

// ---- serverbound ----

// Handshake opens the connection: protocol version, target address and
// the state to switch to.
type Handshake struct {
	ProtocolVersion int32
	Host            string
	Port            uint16
	NextState       State
}

func (p *Handshake) ID() int32 { return ServerboundHandshake }

func (p *Handshake) Serialize() []byte {
	out := packet.AppendVarInt(nil, p.ID())
	out = packet.AppendVarInt(out, p.ProtocolVersion)
	out = AppendString(out, p.Host)
	out = AppendUint16(out, p.Port)
	return packet.AppendVarInt(out, int32(p.NextState))
}

type LoginStart struct {
	Username string
}

func (p *LoginStart) ID() int32 { return ServerboundLoginStart }

func (p *LoginStart) Serialize() []byte {
	out := packet.AppendVarInt(nil, p.ID())
	return AppendString(out, p.Username)
}

// EncryptionResponse answers an encryption request with the shared secret
// and verify token, each encrypted under the server's public key.
type EncryptionResponse struct {
	SharedSecret []byte
	VerifyToken  []byte
}

func (p *EncryptionResponse) ID() int32 { return ServerboundEncryptionResponse }

func (p *EncryptionResponse) Serialize() []byte {
	out := packet.AppendVarInt(nil, p.ID())
	out = AppendByteArray(out, p.SharedSecret)
	return AppendByteArray(out, p.VerifyToken)
}

type KeepAliveServerbound struct {
	AliveID int32
}

func (p *KeepAliveServerbound) ID() int32 { return ServerboundKeepAlive }

func (p *KeepAliveServerbound) Serialize() []byte {
	out := packet.AppendVarInt(nil, p.ID())
	return packet.AppendVarInt(out, p.AliveID)
}

type PositionAndLookServerbound struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	OnGround   bool
}

func (p *PositionAndLookServerbound) ID() int32 { return ServerboundPositionAndLook }

func (p *PositionAndLookServerbound) Serialize() []byte {
	out := packet.AppendVarInt(nil, p.ID())
	out = AppendFloat64(out, p.X)
	out = AppendFloat64(out, p.Y)
	out = AppendFloat64(out, p.Z)
	out = AppendFloat32(out, p.Yaw)
	out = AppendFloat32(out, p.Pitch)
	return AppendBool(out, p.OnGround)
}

type ClientStatusAction int32

const (
	ActionPerformRespawn  ClientStatusAction = 0
	ActionRequestStats    ClientStatusAction = 1
	ActionTakingInventory ClientStatusAction = 2
)

type ClientStatus struct {
	Action ClientStatusAction
}

func (p *ClientStatus) ID() int32 { return ServerboundClientStatus }

func (p *ClientStatus) Serialize() []byte {
	out := packet.AppendVarInt(nil, p.ID())
	return packet.AppendVarInt(out, int32(p.Action))
}
