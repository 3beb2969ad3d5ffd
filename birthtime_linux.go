package main

import (
	"time"

	"golang.org/x/sys/unix"
)

// checkoutCreatedTime returns the birth time of a checkout directory, used
// for the checkout-age display field. Falls back to mtime where the
// filesystem doesn't track btime.
func checkoutCreatedTime(path string) time.Time {
	var stat unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stat)
	if err == nil && stat.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(int64(stat.Btime.Sec), int64(stat.Btime.Nsec))
	}
	return modTime(path)
}
