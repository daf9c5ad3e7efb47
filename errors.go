package mcnet

import (
	"errors"

	"github.com/mcnet-go/mcnet/packet"
	"github.com/mcnet-go/mcnet/protocol"
)

var (
	ErrNotConnected   = errors.New("mcnet: socket not connected")
	ErrResolveFailed  = errors.New("mcnet: hostname did not resolve to any address")
	ErrConnectFailed  = errors.New("mcnet: no resolved address accepted the connection")
	ErrFrameTooLarge  = errors.New("mcnet: frame length prefix exceeds limit")
	ErrMalformedFrame = errors.New("mcnet: malformed frame length prefix")
)

// Errors in this set abandon only the current frame; the connection keeps
// running and the pump moves on to the next frame.
var frameLocalErrMap = make(map[error]struct{})

func init() {
	frameLocalErrMap[packet.ErrSizeMismatch] = struct{}{}
	frameLocalErrMap[protocol.ErrUnrecognizedPacket] = struct{}{}
	frameLocalErrMap[protocol.ErrTruncatedPacket] = struct{}{}
}

func IsFrameLocalError(err error) bool {
	for e := range frameLocalErrMap {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func RegisterFrameLocalError(err error) {
	frameLocalErrMap[err] = struct{}{}
}
