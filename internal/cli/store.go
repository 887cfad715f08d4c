package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/sluice/pkg/adapters/memory"
	redisstore "github.com/aretw0/sluice/pkg/adapters/redis"
	"github.com/aretw0/sluice/pkg/adapters/sqlite"
	"github.com/aretw0/sluice/pkg/persistence/middleware"
	"github.com/aretw0/sluice/pkg/ports"
)

// Encryption-at-rest env variables. The key is 32 hex-encoded bytes;
// fallbacks are a comma-separated list of previous keys for rotation.
const (
	storeKeyEnv          = "SLUICE_STORE_KEY"
	storeKeyFallbacksEnv = "SLUICE_STORE_KEY_FALLBACKS"
)

// OpenStore resolves a --store flag value into a result store. Supported
// forms: "mem" for an in-process store, a redis:// or rediss:// URL, and a
// SQLite file path for everything else. When SLUICE_STORE_KEY is set,
// campaigns are sealed with AES-GCM before they reach the store. The
// returned closer releases the backing connection.
func OpenStore(spec string) (ports.ResultStore, func(), error) {
	store, closer, err := openBase(spec)
	if err != nil || store == nil {
		return store, closer, err
	}
	store, err = encryptFromEnv(store)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return store, closer, nil
}

func openBase(spec string) (ports.ResultStore, func(), error) {
	switch {
	case spec == "":
		return nil, func() {}, nil
	case spec == "mem":
		return memory.NewStore(), func() {}, nil
	case strings.HasPrefix(spec, "redis://") || strings.HasPrefix(spec, "rediss://"):
		opts, err := goredis.ParseURL(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("store url: %w", err)
		}
		client := goredis.NewClient(opts)
		return redisstore.NewFromClient(client), func() { _ = client.Close() }, nil
	default:
		if dir := filepath.Dir(spec); spec != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("store dir: %w", err)
			}
		}
		st, err := sqlite.New(spec)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	}
}

// encryptFromEnv wraps the store with the encryption middleware when a key
// is configured in the environment.
func encryptFromEnv(store ports.ResultStore) (ports.ResultStore, error) {
	raw := os.Getenv(storeKeyEnv)
	if raw == "" {
		return store, nil
	}
	key, err := decodeStoreKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", storeKeyEnv, err)
	}

	var fallbacks [][]byte
	if rawFallbacks := os.Getenv(storeKeyFallbacksEnv); rawFallbacks != "" {
		for _, part := range strings.Split(rawFallbacks, ",") {
			fb, err := decodeStoreKey(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", storeKeyFallbacksEnv, err)
			}
			fallbacks = append(fallbacks, fb)
		}
	}

	mw := middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey:    key,
		FallbackKeys: fallbacks,
	})
	return mw(store), nil
}

func decodeStoreKey(raw string) ([]byte, error) {
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes (64 hex chars), got %d", len(key))
	}
	return key, nil
}
