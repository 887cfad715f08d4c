package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/results"
)

// ErrNotSealed is returned when an encrypting store loads a campaign that
// carries no sealed payload. Once encryption is configured, plain campaigns
// are refused rather than passed through.
var ErrNotSealed = errors.New("campaign is not sealed")

// EncryptionConfig holds the keys for sealing and opening campaigns.
type EncryptionConfig struct {
	// ActiveKey encrypts new campaigns. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when opening fails under the active
	// key. This enables key rotation without re-encrypting stored
	// campaigns.
	FallbackKeys [][]byte
}

type encryption struct {
	next   ports.ResultStore
	config EncryptionConfig
}

// NewEncryption creates a middleware that seals campaigns with AES-GCM
// before they reach the wrapped store. A stored envelope keeps the campaign
// ID, system name and creation time readable for listing; config, runs and
// indicators exist only inside the ciphertext.
func NewEncryption(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.ResultStore) ports.ResultStore {
		return &encryption{next: next, config: config}
	}
}

func (m *encryption) SaveCampaign(ctx context.Context, c *results.Campaign) error {
	plain, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode campaign %s: %w", c.ID, err)
	}

	sealed, err := seal(plain, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("seal campaign %s: %w", c.ID, err)
	}

	envelope := &results.Campaign{
		ID:        c.ID,
		System:    c.System,
		CreatedAt: c.CreatedAt,
		Sealed:    sealed,
	}
	return m.next.SaveCampaign(ctx, envelope)
}

func (m *encryption) LoadCampaign(ctx context.Context, id string) (*results.Campaign, error) {
	envelope, err := m.next.LoadCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(envelope.Sealed) == 0 {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrNotSealed)
	}

	plain, err := open(envelope.Sealed, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("open campaign %s: %w", id, err)
	}

	var c results.Campaign
	if err := json.Unmarshal(plain, &c); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	return &c, nil
}

func (m *encryption) DeleteCampaign(ctx context.Context, id string) error {
	return m.next.DeleteCampaign(ctx, id)
}

func (m *encryption) ListCampaigns(ctx context.Context) ([]string, error) {
	return m.next.ListCampaigns(ctx)
}

// seal encrypts plaintext with AES-GCM, prepending the nonce to the
// ciphertext.
func seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts with the active key first, then each fallback in order.
func open(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := unseal(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := unseal(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("opening failed with every available key")
}

func unseal(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
