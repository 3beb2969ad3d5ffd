package main

import (
	"syscall"
	"time"
)

// checkoutCreatedTime returns the birth time of a checkout directory, used
// for the checkout-age display field.
func checkoutCreatedTime(path string) time.Time {
	var stat syscall.Stat_t
	if err := syscall.Stat(path, &stat); err == nil {
		return time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
	}
	return modTime(path)
}
