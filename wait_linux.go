package zio

import (
	"time"

	"golang.org/x/sys/unix"
)

// waitReadable polls fd for readability for up to timeout, restarting
// on EINTR so signals like SIGWINCH never surface as errors. A timeout
// with no data ready reports (false, nil), not an error:
// read_until_timeout must never fail merely because the deadline
// elapsed.
func waitReadable(fd int, timeout time.Duration) (bool, error) {
	ms := int(timeout / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}
