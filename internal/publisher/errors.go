package publisher

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrBrokerUnreachable  = errors.New("broker unreachable")
	ErrSubscribeFailed    = errors.New("subscribe failed")
	ErrSensorReadFailed   = errors.New("sensor read failed")
	ErrBatteryReadFailed  = errors.New("battery read failed")
	ErrPublishTimeout     = errors.New("publish timed out")
	ErrPublishUnreachable = errors.New("publish failed")
)

func wrap(kind, cause error) error {
	return fmt.Errorf("%w: %v", kind, cause)
}

// publishError classifies a broker publish failure as a timeout or an
// unreachable broker.
func publishError(err error) error {
	var t interface{ Timeout() bool }
	if (errors.As(err, &t) && t.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return wrap(ErrPublishTimeout, err)
	}
	return wrap(ErrPublishUnreachable, err)
}
