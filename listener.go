package mcnet

// ConnectionListener receives session level events. Notifications fire
// synchronously in registration order over a snapshot of the listener
// list, so a listener may remove itself from within a notification.
type ConnectionListener interface {
	OnSocketStateChange(status SocketStatus)
	OnLogin(success bool, message string)
	OnAuthentication(success bool, message string)
}

func (c *Connection) AddListener(l ConnectionListener) {
	c.listeners = append(c.listeners, l)
}

func (c *Connection) RemoveListener(l ConnectionListener) {
	for i, x := range c.listeners {
		if x == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *Connection) snapshotListeners() []ConnectionListener {
	return append([]ConnectionListener(nil), c.listeners...)
}

func (c *Connection) notifySocketState(status SocketStatus) {
	for _, l := range c.snapshotListeners() {
		l.OnSocketStateChange(status)
	}
}

func (c *Connection) notifyLogin(success bool, message string) {
	for _, l := range c.snapshotListeners() {
		l.OnLogin(success, message)
	}
}

func (c *Connection) notifyAuthentication(success bool, message string) {
	for _, l := range c.snapshotListeners() {
		l.OnAuthentication(success, message)
	}
}
