// Package gpg inspects leaked OpenPGP key material.
package gpg

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// maxArmoredSize caps how much of a leaked blob is parsed
const maxArmoredSize = 64 * 1024

var privateKeyHeader = "-----BEGIN " + openpgp.PrivateKeyType + "-----"

// ErrNotPrivateKey is returned when the input holds no armored private key block
var ErrNotPrivateKey = errors.New("no armored PGP private key block")

// KeyInfo identifies a leaked OpenPGP private key
type KeyInfo struct {
	Fingerprint string
	KeyID       string
	Identities  []string
	Created     time.Time
	Encrypted   bool
}

// KeyInspector parses armored key material using ProtonMail's go-crypto
// A maintained, modern fork of golang.org/x/crypto/openpgp
type KeyInspector struct{}

// NewKeyInspector creates a new key inspector
func NewKeyInspector() *KeyInspector {
	return &KeyInspector{}
}

// Inspect extracts the primary key details of the first private key block in raw
func (k *KeyInspector) Inspect(raw string) (*KeyInfo, error) {
	start := strings.Index(raw, privateKeyHeader)
	if start < 0 {
		return nil, ErrNotPrivateKey
	}
	raw = raw[start:]
	if len(raw) > maxArmoredSize {
		raw = raw[:maxArmoredSize]
	}

	block, err := armor.Decode(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode armor: %w", err)
	}
	if block.Type != openpgp.PrivateKeyType {
		return nil, ErrNotPrivateKey
	}

	keyring, err := openpgp.ReadKeyRing(block.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	if len(keyring) == 0 || keyring[0].PrimaryKey == nil {
		return nil, fmt.Errorf("no keys found in block")
	}

	entity := keyring[0]
	info := &KeyInfo{
		Fingerprint: fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint),
		KeyID:       fmt.Sprintf("%016X", entity.PrimaryKey.KeyId),
		Created:     entity.PrimaryKey.CreationTime,
		Encrypted:   entity.PrivateKey != nil && entity.PrivateKey.Encrypted,
	}

	for name := range entity.Identities {
		info.Identities = append(info.Identities, name)
	}
	sort.Strings(info.Identities)

	return info, nil
}

// Describe returns a short human label for a leaked private key, or false when raw is not one
func (k *KeyInspector) Describe(raw string) (string, bool) {
	info, err := k.Inspect(raw)
	if err != nil {
		return "", false
	}

	label := "PGP private key " + info.Fingerprint
	if len(info.Identities) > 0 {
		label += " (" + info.Identities[0] + ")"
	}
	if !info.Encrypted {
		label += ", not passphrase protected"
	}
	return label, true
}
