package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Hasher computes SHA-256 digests for archive verification and package
// identity.
type Hasher struct{}

// DefaultHasher returns the shared SHA-256 hasher.
func DefaultHasher() *Hasher {
	return &Hasher{}
}

// Hash digests a byte slice.
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashReader digests everything readable from r. Archives are hashed
// as a stream so a download never has to fit in memory.
func (h *Hasher) HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to hash stream: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashFile digests a file's contents.
func (h *Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return h.HashReader(f)
}

// hashFields digests fields in sorted order, so identity hashes do not
// depend on argument order.
func (h *Hasher) hashFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)
	return h.Hash([]byte(strings.Join(sorted, "|")))
}

// PackageIdentifier derives deterministic identities for installed
// packages.
type PackageIdentifier struct {
	hasher *Hasher
}

// NewPackageIdentifier creates an identifier. A nil hasher gets the
// default.
func NewPackageIdentifier(hasher *Hasher) *PackageIdentifier {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &PackageIdentifier{hasher: hasher}
}

// GenerateHash derives the identity hash for one release of a package.
// Reinstalling the same ID and version reproduces the same hash.
func (pi *PackageIdentifier) GenerateHash(appID, version string) string {
	return pi.hasher.hashFields(appID, fmt.Sprintf("version:%s", version))
}
