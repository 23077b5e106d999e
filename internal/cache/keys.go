package cache

import (
	"sort"
	"strings"
	"time"
)

// KeyPrefix namespaces every key written by this module.
const KeyPrefix = "sbx:"

// TTL policy per data class.
const (
	TTLBrowse      = time.Hour
	TTLArtist      = 12 * time.Hour
	TTLAlbum       = 12 * time.Hour
	TTLTrack       = 24 * time.Hour
	TTLPlaylist    = time.Hour
	TTLSearch      = 10 * time.Minute
	TTLSavedTracks time.Duration = 0 // never cached
	TTLUserProfile time.Duration = 0 // never cached
)

// Key builds "sbx:<op>:k=v&k=v" from name/value pairs sorted by name.
//
// Values are used verbatim. Free-text values should be passed through [Text]. A trailing name without a value is
// ignored.
func Key(op string, kv ...string) string {
	pairs := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, kv[i]+"="+kv[i+1])
	}
	sort.Strings(pairs)

	var b strings.Builder
	b.WriteString(KeyPrefix)
	b.WriteString(op)
	b.WriteByte(':')
	b.WriteString(strings.Join(pairs, "&"))
	return b.String()
}

// Text normalizes free text for use in a key: trimmed, lower-cased and with inner whitespace collapsed.
func Text(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// OpPrefix returns the prefix shared by every key for op, suitable for [Cache.Clear].
func OpPrefix(op string) string {
	if op == "" {
		return KeyPrefix
	}
	return KeyPrefix + op + ":"
}
