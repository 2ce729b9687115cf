//go:build !unix

package dirstat

import "io/fs"

// rootDevice reports no device information on platforms without device ids.
func rootDevice(string) (uint64, bool, error) {
	return 0, false, nil
}

func deviceOf(fs.FileInfo) (uint64, bool) {
	return 0, false
}
