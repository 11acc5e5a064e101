package broker

import (
	"fmt"
	"time"

	"github.com/fogfish/opts"
)

const (
	defaultSlowSubscriberTimeout = 100 * time.Millisecond
	defaultSubscriberBuffer      = 50
)

type settings struct {
	slowSubscriberTimeout time.Duration
	subscriberBuffer      int
}

// Option configures a broker.
type Option = opts.Option[settings]

// SlowSubscriberTimeout is how long the local broker waits on a full
// subscriber before dropping it.
var SlowSubscriberTimeout = opts.ForName[settings, time.Duration]("slowSubscriberTimeout")

// SubscriberBuffer is the number of events queued per subscriber.
var SubscriberBuffer = opts.ForName[settings, int]("subscriberBuffer")

func newSettings(options []Option) (settings, error) {
	s := settings{
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
		subscriberBuffer:      defaultSubscriberBuffer,
	}
	if err := opts.Apply(&s, options); err != nil {
		return settings{}, err
	}
	if s.slowSubscriberTimeout <= 0 {
		return settings{}, fmt.Errorf("slow subscriber timeout must be positive, got %s", s.slowSubscriberTimeout)
	}
	if s.subscriberBuffer < 0 {
		return settings{}, fmt.Errorf("subscriber buffer must not be negative, got %d", s.subscriberBuffer)
	}
	return s, nil
}
