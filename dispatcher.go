package mcnet

import (
	"strconv"

	cmap "github.com/orcaman/concurrent-map"

	"github.com/mcnet-go/mcnet/protocol"
)

// PacketHandler receives one dispatched inbound packet. Handlers run
// synchronously inside the pump call, in registration order.
type PacketHandler func(p protocol.InboundPacket)

// HandlerRef identifies one registration so it can be removed again.
type HandlerRef struct {
	state protocol.State
	id    int32
	fn    PacketHandler
}

// Dispatcher routes decoded packets to the handlers registered for the
// connection's current state and the packet's id. Registration may happen
// from outside the pump goroutine, so the registry is a concurrent map;
// dispatch iterates a snapshot, which makes unregistering from inside a
// running handler safe.
type Dispatcher struct {
	handlers cmap.ConcurrentMap
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: cmap.New()}
}

func handlerKey(state protocol.State, id int32) string {
	return strconv.Itoa(int(state)) + "/" + strconv.Itoa(int(id))
}

func (d *Dispatcher) RegisterHandler(state protocol.State, id int32, fn PacketHandler) *HandlerRef {
	ref := &HandlerRef{state: state, id: id, fn: fn}
	d.handlers.Upsert(handlerKey(state, id), nil, func(exist bool, cur interface{}, _ interface{}) interface{} {
		var list []*HandlerRef
		if exist {
			list = cur.([]*HandlerRef)
		}
		// Copy on write; Dispatch iterates whatever snapshot it fetched.
		next := make([]*HandlerRef, 0, len(list)+1)
		next = append(next, list...)
		return append(next, ref)
	})
	return ref
}

func (d *Dispatcher) UnregisterHandler(ref *HandlerRef) {
	if ref == nil {
		return
	}
	d.handlers.Upsert(handlerKey(ref.state, ref.id), nil, func(exist bool, cur interface{}, _ interface{}) interface{} {
		if !exist {
			return []*HandlerRef(nil)
		}
		list := cur.([]*HandlerRef)
		next := make([]*HandlerRef, 0, len(list))
		for _, r := range list {
			if r != ref {
				next = append(next, r)
			}
		}
		return next
	})
}

func (d *Dispatcher) Dispatch(state protocol.State, p protocol.InboundPacket) {
	v, ok := d.handlers.Get(handlerKey(state, p.ID()))
	if !ok {
		return
	}
	for _, ref := range v.([]*HandlerRef) {
		ref.fn(p)
	}
}
