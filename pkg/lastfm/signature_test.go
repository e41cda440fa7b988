package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestSign(t *testing.T) {
	params := map[string]string{
		"method":  "auth.getSession",
		"api_key": "key",
		"token":   "tok",
	}

	// api_key + method + token, in key order, then the secret.
	sum := md5.Sum([]byte("api_keykeymethodauth.getSessiontokentoksecret"))
	want := hex.EncodeToString(sum[:])

	if got := Sign(params, "secret"); got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestSign_ExcludesFormatAndCallback(t *testing.T) {
	base := map[string]string{"method": "auth.getToken", "api_key": "key"}
	withExtras := map[string]string{
		"method":   "auth.getToken",
		"api_key":  "key",
		"format":   "json",
		"callback": "cb",
	}

	if Sign(base, "s") != Sign(withExtras, "s") {
		t.Error("format and callback should not affect the signature")
	}
}

func TestSign_Deterministic(t *testing.T) {
	build := func(keys []string) map[string]string {
		m := make(map[string]string)
		for _, k := range keys {
			m[k] = "v_" + k
		}
		return m
	}

	a := build([]string{"track", "artist", "album", "sk", "method", "api_key", "timestamp"})
	b := build([]string{"api_key", "timestamp", "method", "sk", "album", "artist", "track"})

	first := Sign(a, "secret")
	for i := 0; i < 50; i++ {
		if got := Sign(b, "secret"); got != first {
			t.Fatalf("iteration %d: Sign() = %s, want %s", i, got, first)
		}
	}
}

func TestSign_UTF8(t *testing.T) {
	params := map[string]string{"artist": "Sigur Rós", "track": "Hoppípolla"}

	raw := "artistSigur RóstrackHoppípollasecret"
	want := md5.Sum([]byte(raw))
	if got := Sign(params, "secret"); got != hex.EncodeToString(want[:]) {
		t.Errorf("Sign() = %s, want %s", got, hex.EncodeToString(want[:]))
	}
}
