//go:build unix

package dirstat

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"
)

// rootDevice returns the device id of the filesystem holding path.
func rootDevice(path string) (uint64, bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, false, err
	}

	return uint64(st.Dev), true, nil //nolint:unconvert,gosec // Dev width varies by platform
}

// deviceOf returns the device id recorded in already-read metadata.
func deviceOf(info fs.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}

	return uint64(st.Dev), true //nolint:unconvert,gosec // Dev width varies by platform
}
