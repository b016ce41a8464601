package secret

import (
	"os"
	"strings"
)

// EnvStore implements SecretStore over environment variables. Keys are
// upper-cased and non-alphanumerics become underscores, so "prod-db"
// reads BARREL_PROD_DB when Prefix is "BARREL_".
type EnvStore struct {
	Prefix string
}

// NewEnvStore creates an EnvStore with the BARREL_ prefix.
func NewEnvStore() *EnvStore {
	return &EnvStore{Prefix: "BARREL_"}
}

// Name returns the environment variable read for key.
func (e *EnvStore) Name(key string) string {
	var b strings.Builder
	b.WriteString(e.Prefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (e *EnvStore) Set(key string, value []byte) error {
	return os.Setenv(e.Name(key), string(value))
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(e.Name(key))
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (e *EnvStore) Delete(key string) error {
	return os.Unsetenv(e.Name(key))
}
