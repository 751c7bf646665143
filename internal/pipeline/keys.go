package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// extensionPattern matches a trailing dot followed by word characters.
var extensionPattern = regexp.MustCompile(`\.(\w+)$`)

// minKeySegments is the number of "/"-separated segments a source key
// needs for a destination prefix to be derived.
const minKeySegments = 3

// Extension returns the trailing extension of key without the dot.
// Returns ErrInvalidKey if the key has none.
func Extension(key string) (string, error) {
	m := extensionPattern.FindStringSubmatch(key)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return m[1], nil
}

// DestinationPrefix derives where frames of key are written: the second
// and third path segments, with the extension of the third removed.
//
//	videos/alpha/clip.mp4 -> alpha/clip
//	a/b/c/d.mp4           -> b/c
//
// Returns ErrKeyShape if the key has fewer than three segments or either
// prefix segment is empty.
func DestinationPrefix(key string) (string, error) {
	parts := strings.Split(key, "/")
	if len(parts) < minKeySegments {
		return "", fmt.Errorf("%w: %q has %d, need %d", ErrKeyShape, key, len(parts), minKeySegments)
	}

	first := parts[1]
	second := extensionPattern.ReplaceAllString(parts[2], "")
	if first == "" || second == "" {
		return "", fmt.Errorf("%w: %q has an empty prefix segment", ErrKeyShape, key)
	}
	return first + "/" + second, nil
}

// DestinationKey joins prefix and a produced filename.
func DestinationKey(prefix, filename string) string {
	return prefix + "/" + filename
}
