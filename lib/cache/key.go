package cache

import (
	"strconv"
	"strings"
)

const (
	// maxNameLength is the longest entry file name used as is
	maxNameLength = 200
	// keyReplaceChars are the characters of a key that are mapped to '#'
	keyReplaceChars = "/(),\"'"
)

// CacheKey derives the key of a function result: the dataset identifier and
// the function text joined by '#', with every character of /(),"' replaced
// by '#'.
func CacheKey(datasetID, function string) string {
	key := datasetID + "#" + function
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(keyReplaceChars, r) {
			return '#'
		}
		return r
	}, key)
}

// entryName returns the file name of the entry for key. Names longer than
// maxNameLength are cut and get the hash of the full name appended, so that
// distinct keys keep distinct names.
func entryName(prefix, key string) string {
	name := prefix + key
	if len(name) <= maxNameLength {
		return name
	}
	suffix := "#" + strconv.FormatUint(hashString(name, 0), 16)
	return name[:maxNameLength-len(suffix)] + suffix
}

// hashString generates a hash value for a string with a seed using FNV-1a
func hashString(s string, seed uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}
