//go:build !linux && !darwin

package clock

import "time"

func now() (sec, nsec int64, err error) {
	t := time.Now()
	return t.Unix(), int64(t.Nanosecond()), nil
}
