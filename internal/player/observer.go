// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package player

// observer holds the latest undelivered snapshot for one subscriber.
type observer struct {
	ch chan Snapshot
}

// offer replaces any undelivered snapshot with s. Only the controller
// publishes, under its lock, so the second send cannot block.
func (o *observer) offer(s Snapshot) {
	select {
	case o.ch <- s:
		return
	default:
	}
	select {
	case <-o.ch:
	default:
	}
	select {
	case o.ch <- s:
	default:
	}
}

// Subscribe returns a channel receiving the current snapshot and every later
// change. Slow readers only miss intermediate snapshots, never the latest.
// cancel closes the channel; it is safe to call more than once.
func (c *Controller) Subscribe() (updates <-chan Snapshot, cancel func()) {
	o := &observer{ch: make(chan Snapshot, 1)}

	c.mu.Lock()
	c.observers[o] = struct{}{}
	o.offer(c.snapshotLocked())
	c.mu.Unlock()

	return o.ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.observers[o]; ok {
			delete(c.observers, o)
			close(o.ch)
		}
	}
}

func (c *Controller) publishLocked() {
	if len(c.observers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for o := range c.observers {
		o.offer(snap)
	}
}
