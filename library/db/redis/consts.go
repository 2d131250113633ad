package redis

const (
	keyPrefix = "opendraw/"

	// KeyPrefixFileCache is the key prefix for cached file content.
	KeyPrefixFileCache = keyPrefix + "file/"
	// KeyPrefixLock is the key prefix for distributed locks.
	KeyPrefixLock = keyPrefix + "lock/"
	// ChannelPrefixRoom is the pub/sub channel prefix for project rooms.
	ChannelPrefixRoom = keyPrefix + "room/"
)
