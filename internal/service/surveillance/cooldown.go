package surveillance

import (
	"fmt"
	"time"

	"cctvmonitor/internal/model"
)

// deliveryCooldown is the wall-clock gate in front of the sink. It is
// independent of the classifier's frame cooldown and absorbs bursts when the
// frame rate varies.
type deliveryCooldown struct {
	window time.Duration
	last   map[string]time.Time
}

func newDeliveryCooldown(window time.Duration) *deliveryCooldown {
	return &deliveryCooldown{window: window, last: make(map[string]time.Time)}
}

func cooldownKey(trackID int, kind model.BehaviorKind) string {
	return fmt.Sprintf("%d_%s", trackID, kind)
}

// allow reports whether an event may be delivered at now and, if so, records it.
func (c *deliveryCooldown) allow(trackID int, kind model.BehaviorKind, now time.Time) bool {
	key := cooldownKey(trackID, kind)
	if last, ok := c.last[key]; ok && now.Sub(last) < c.window {
		return false
	}
	c.last[key] = now
	return true
}

// expire forgets entries older than the window.
func (c *deliveryCooldown) expire(now time.Time) {
	for key, last := range c.last {
		if now.Sub(last) >= c.window {
			delete(c.last, key)
		}
	}
}
