package main

import (
	"time"

	"golang.org/x/sys/unix"
)

// createdAt returns the birth time of path, or fallback when the
// filesystem does not record one.
func createdAt(path string, fallback time.Time) time.Time {
	var st unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &st); err != nil {
		return fallback
	}
	if st.Mask&unix.STATX_BTIME == 0 || st.Btime.Sec == 0 {
		return fallback
	}
	return time.Unix(st.Btime.Sec, int64(st.Btime.Nsec))
}
