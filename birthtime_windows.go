package main

import (
	"os"
	"syscall"
	"time"
)

func createdAt(path string, fallback time.Time) time.Time {
	info, err := os.Lstat(path)
	if err != nil {
		return fallback
	}
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return fallback
	}
	return time.Unix(0, attrs.CreationTime.Nanoseconds())
}
