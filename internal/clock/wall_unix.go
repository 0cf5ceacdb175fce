//go:build linux || darwin

package clock

import "golang.org/x/sys/unix"

func now() (sec, nsec int64, err error) {
	var tv unix.Timeval
	if err := unix.Gettimeofday(&tv); err != nil {
		return 0, 0, err
	}
	sec, nsec = tv.Unix()
	return sec, nsec, nil
}
