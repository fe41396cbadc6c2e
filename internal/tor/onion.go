package tor

import (
	"encoding/base32"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionV3Length is the length of a v3 address without ".onion".
	OnionV3Length = 56

	// OnionV3Version is the version byte of v3 addresses.
	OnionV3Version = 0x03

	// OnionV2Length is the length of a retired v2 address without ".onion".
	OnionV2Length = 16

	// OnionSuffix is the suffix of every onion address.
	OnionSuffix = ".onion"
)

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)
)

// checksumPrefix is hashed in front of the key when computing a v3 checksum.
var checksumPrefix = []byte(".onion checksum")

var (
	// ErrInvalidOnionAddress is returned for a malformed onion address.
	ErrInvalidOnionAddress = errors.New("invalid onion address")

	// ErrV2AddressDeprecated is returned for a 16-character address. The Tor
	// network stopped serving these in October 2021.
	ErrV2AddressDeprecated = errors.New("v2 onion addresses are deprecated and no longer functional")
)

// IsValidV3Address reports whether address is a v3 onion address with a
// correct checksum and version byte.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	encoded := strings.ToUpper(strings.TrimSuffix(address, OnionSuffix))
	decoded, err := base32.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) != 35 {
		return false
	}

	// pubkey(32) | checksum(2) | version(1)
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != OnionV3Version {
		return false
	}
	want := computeV3Checksum(pubkey, version)
	return checksum[0] == want[0] && checksum[1] == want[1]
}

// IsV2Address reports whether address has the retired v2 format.
func IsV2Address(address string) bool {
	return onionV2Pattern.MatchString(strings.ToLower(address))
}

// CheckHost rejects onion hosts that cannot be reached: v2 addresses and
// 56-character addresses with a bad checksum. Other hosts pass unchanged,
// including non-onion names.
func CheckHost(host string) error {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if !strings.HasSuffix(host, OnionSuffix) {
		return nil
	}

	// Subdomains of an onion service resolve to the service itself.
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	service := labels[len(labels)-1] + OnionSuffix

	switch {
	case IsV2Address(service):
		return ErrV2AddressDeprecated
	case len(service) == OnionV3Length+len(OnionSuffix) && !IsValidV3Address(service):
		return ErrInvalidOnionAddress
	}
	return nil
}

// computeV3Checksum returns the first two bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	hash := sha3.Sum256(data)
	return hash[:2]
}

// ComputeV3AddressFromPublicKey returns the v3 address of an ed25519
// public key.
func ComputeV3AddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidOnionAddress
	}

	data := make([]byte, 35)
	copy(data[:32], pubkey)
	copy(data[32:34], computeV3Checksum(pubkey, OnionV3Version))
	data[34] = OnionV3Version

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix, nil
}
