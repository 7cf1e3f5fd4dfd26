package main

import (
	"time"

	"golang.org/x/sys/unix"
)

func createdAt(path string, fallback time.Time) time.Time {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil || st.Birthtimespec.Sec == 0 {
		return fallback
	}
	return time.Unix(st.Birthtimespec.Unix())
}
