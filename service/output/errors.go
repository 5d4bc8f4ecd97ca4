package output

import "errors"

var (
	// ErrPermission is returned when a command needs to be run with sudo.
	ErrPermission = errors.New("command needs to be run as sudo")

	// ErrLockWait is returned when a command waits on a held lock and raising
	// on lock waits is enabled.
	ErrLockWait = errors.New("command is waiting on a lock")
)
