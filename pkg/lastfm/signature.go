package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign generates the api_sig value for a Last.fm API request.
//
// The signature is calculated by:
//  1. Dropping the "format" and "callback" parameters
//  2. Sorting the remaining keys alphabetically
//  3. Concatenating key+value pairs (e.g., "keyAvalueAkeyBvalueB")
//  4. Appending the API secret
//  5. Taking the hex-encoded MD5 hash of the UTF-8 bytes
//
// A mismatch is rejected by Last.fm with error 13, so the construction must
// stay byte-for-byte identical.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "format" || k == "callback" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
