//go:build !unix

package storage

import (
	"syscall"
	"time"
)

func statCTime(*syscall.Stat_t) time.Time { return time.Time{} }
func statATime(*syscall.Stat_t) time.Time { return time.Time{} }
