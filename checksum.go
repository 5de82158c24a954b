package fileaccess

import (
	"context"
	"crypto/md5"  //nolint:gosec // integrity only
	"crypto/sha1" //nolint:gosec // integrity only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ChecksumAlgorithm names a hash used to fingerprint element content, for
// example to confirm a checkpoint script survived a copy between providers.
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	ChecksumCRC32  ChecksumAlgorithm = "crc32"
	// ChecksumXXHash is non-cryptographic and the cheapest to compute over
	// large data files.
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

var hashers = map[ChecksumAlgorithm]func() hash.Hash{
	ChecksumMD5:    md5.New,  //nolint:gosec // integrity only
	ChecksumSHA1:   sha1.New, //nolint:gosec // integrity only
	ChecksumSHA256: sha256.New,
	ChecksumSHA512: sha512.New,
	ChecksumCRC32:  func() hash.Hash { return crc32.NewIEEE() },
	ChecksumXXHash: func() hash.Hash { return xxhash.New() },
}

// ChecksumAlgorithms returns the supported algorithm names, sorted.
func ChecksumAlgorithms() []string {
	names := make([]string, 0, len(hashers))
	for algo := range hashers {
		names = append(names, string(algo))
	}
	sort.Strings(names)
	return names
}

// ParseChecksumAlgorithm maps a case-insensitive name such as "SHA256" to
// its algorithm.
func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	algo := ChecksumAlgorithm(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := hashers[algo]; !ok {
		return "", fmt.Errorf("%w: checksum algorithm %q", ErrNotSupported, s)
	}
	return algo, nil
}

// NewHasher returns a fresh hash for algorithm, or ErrNotSupported.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	newHash, ok := hashers[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: checksum algorithm %q", ErrNotSupported, algorithm)
	}
	return newHash(), nil
}

// CalculateChecksum hashes everything r yields and returns the digest as
// lowercase hex.
func CalculateChecksum(r io.Reader, algorithm ChecksumAlgorithm) (string, error) {
	sums, err := CalculateChecksums(r, []ChecksumAlgorithm{algorithm})
	if err != nil {
		return "", err
	}
	return sums[algorithm], nil
}

// CalculateChecksums hashes r once with every algorithm, so a large element
// is streamed a single time.
func CalculateChecksums(r io.Reader, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	if len(algorithms) == 0 {
		return nil, errors.New("checksum: no algorithms")
	}

	hs := make(map[ChecksumAlgorithm]hash.Hash, len(algorithms))
	ws := make([]io.Writer, 0, len(algorithms))
	for _, algo := range algorithms {
		if _, dup := hs[algo]; dup {
			continue
		}
		h, err := NewHasher(algo)
		if err != nil {
			return nil, err
		}
		hs[algo] = h
		ws = append(ws, h)
	}

	if _, err := io.Copy(io.MultiWriter(ws...), r); err != nil {
		return nil, fmt.Errorf("checksum: %w", err)
	}

	sums := make(map[ChecksumAlgorithm]string, len(hs))
	for algo, h := range hs {
		sums[algo] = hex.EncodeToString(h.Sum(nil))
	}
	return sums, nil
}

// VerifyChecksum reads path straight from the provider and reports whether
// its digest equals expected. Hex case is ignored.
func VerifyChecksum(ctx context.Context, fs FileReader, path, expected string, algorithm ChecksumAlgorithm) (bool, error) {
	rc, err := fs.Read(ctx, path)
	if err != nil {
		return false, err
	}
	defer rc.Close()

	actual, err := CalculateChecksum(rc, algorithm)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}
