package util

import "golang.org/x/sys/unix"

// FreeDiskSpace returns the bytes available to unprivileged users on the
// filesystem holding path.
func FreeDiskSpace(path string) (uint64, error) {
	if path == "" {
		path = "/"
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
