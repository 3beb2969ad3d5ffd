package main

import (
	"os"
	"syscall"
	"time"
)

// checkoutCreatedTime returns the creation time of a checkout directory, used
// for the checkout-age display field.
func checkoutCreatedTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	if d, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, d.CreationTime.Nanoseconds())
	}
	return info.ModTime()
}
