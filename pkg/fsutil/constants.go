package fsutil

// File and directory permission constants.
// Store modes are derived from a umask-style value; these bound the result.
const (
	// PermMask keeps the owner/group/other permission bits.
	PermMask = 0o777
	// ExecBits are the execute bits for owner, group and other.
	ExecBits = 0o111

	// DefaultUmask keeps everything private to the owner.
	DefaultUmask = 0o077

	// Modes used for the application's own bookkeeping files.
	DirModePrivate  = 0o700 // drwx------
	FileModePrivate = 0o600 // -rw-------
)
