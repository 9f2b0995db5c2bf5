package utils

import (
	"regexp"
	"strings"
)

// unsafeFilenameChars matches the characters that are not portable across
// filesystems. Runs of them collapse into a single underscore.
var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]+`)

// SafeFilename turns a property display name into a usable file name.
func SafeFilename(name string) string {
	return strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(name, "_"))
}
