package credit

import (
	"context"
	"time"
)

// RunCountdown ticks the display once per interval while it is above zero.
// At zero the ticker is stopped and the loop waits for the next re-baseline.
func RunCountdown(ctx context.Context, c *Controller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	active := c.DisplaySeconds() > 0
	if !active {
		ticker.Stop()
	}

	for {
		if !active {
			select {
			case <-ctx.Done():
				return
			case <-c.Wake():
				if c.DisplaySeconds() > 0 {
					active = true
					ticker.Reset(interval)
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-c.Wake():
		case <-ticker.C:
			if !c.Tick() {
				active = false
				ticker.Stop()
			}
		}
	}
}

// RunPoller refreshes the balance on a fixed cadence until ctx is done.
func RunPoller(ctx context.Context, c *Controller, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && onError != nil && ctx.Err() == nil {
				onError(err)
			}
		}
	}
}
