package power

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/jholub/mactivity/internal/timeline"
)

// BootTimeSource reports the current boot instant straight from the kernel,
// with no subprocess. It backs up the last command when wtmp has been
// rotated away.
type BootTimeSource struct{}

func (BootTimeSource) Name() string { return "boottime" }

func (BootTimeSource) Collect(ctx context.Context, since, now time.Time) ([]timeline.Event, error) {
	epoch, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host boot time: %w", err)
	}
	booted := time.Unix(int64(epoch), 0)
	if booted.Before(since) || booted.After(now) {
		return nil, nil
	}
	e, err := timeline.NewEvent(booted, timeline.EventBoot, "kernel boot time", nil, now)
	if err != nil {
		return nil, err
	}
	return []timeline.Event{e}, nil
}
