package keys

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// indexCacheSize is required by badger once encryption is enabled.
const indexCacheSize = 64 << 20

// Key encrypts the local database at rest.
type Key []byte

func NewKey() (Key, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return Key(bytes), nil
}

// ParseKey accepts a raw AES key of 16, 24 or 32 bytes, or its url safe base64 form.
func ParseKey(value string) (Key, error) {
	if decoded, err := base64.URLEncoding.DecodeString(value); err == nil && validSize(len(decoded)) {
		return Key(decoded), nil
	}
	if validSize(len(value)) {
		return Key(value), nil
	}
	return nil, fmt.Errorf("invalid key size: got %d, need 16, 24 or 32", len(value))
}

func validSize(n int) bool {
	return n == 16 || n == 24 || n == 32
}

func (k Key) String() string {
	return base64.URLEncoding.EncodeToString(k)
}

// Apply enables encryption on opts. An empty key leaves them unchanged.
func (k Key) Apply(opts badger.Options) badger.Options {
	if len(k) == 0 {
		return opts
	}
	return opts.WithEncryptionKey(k).WithIndexCacheSize(indexCacheSize)
}
