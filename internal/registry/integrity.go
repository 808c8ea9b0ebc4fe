package registry

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

const (
	integrityEntrySeparatorConstant   = "-"
	integrityMismatchTemplateConstant = "%s integrity mismatch: expected %s, got %s"
	missingIntegrityMessageConstant   = "manifest publishes neither integrity nor shasum"
	algorithmSHA512Constant           = "sha512"
	algorithmSHA384Constant           = "sha384"
	algorithmSHA256Constant           = "sha256"
	algorithmSHA1Constant             = "sha1"
)

// ErrIntegrityUnavailable indicates a manifest carried no usable digest.
var ErrIntegrityUnavailable = errors.New(missingIntegrityMessageConstant)

// IntegrityError reports a downloaded tarball whose digest does not match the manifest.
type IntegrityError struct {
	Algorithm string
	Expected  string
	Actual    string
}

// Error describes the mismatch.
func (integrityError IntegrityError) Error() string {
	return fmt.Sprintf(integrityMismatchTemplateConstant, integrityError.Algorithm, integrityError.Expected, integrityError.Actual)
}

// algorithmStrength orders supported SRI algorithms, strongest first.
var algorithmStrength = []string{algorithmSHA512Constant, algorithmSHA384Constant, algorithmSHA256Constant}

// IntegrityVerifier hashes written bytes and compares the digest with the published one.
type IntegrityVerifier struct {
	algorithm string
	expected  string
	encode    func([]byte) string
	hasher    hash.Hash
}

// NewIntegrityVerifier picks the strongest SRI digest from dist.integrity, falling back to the
// hex sha1 dist.shasum.
func NewIntegrityVerifier(dist Dist) (*IntegrityVerifier, error) {
	publishedDigests := map[string]string{}
	for _, entry := range strings.Fields(dist.Integrity) {
		algorithm, digest, found := strings.Cut(entry, integrityEntrySeparatorConstant)
		if !found {
			continue
		}
		if _, seen := publishedDigests[algorithm]; !seen {
			publishedDigests[algorithm] = digest
		}
	}

	for _, algorithm := range algorithmStrength {
		digest, published := publishedDigests[algorithm]
		if !published {
			continue
		}
		return &IntegrityVerifier{
			algorithm: algorithm,
			expected:  digest,
			encode:    base64.StdEncoding.EncodeToString,
			hasher:    newHasher(algorithm),
		}, nil
	}

	if shasum := strings.ToLower(strings.TrimSpace(dist.Shasum)); len(shasum) > 0 {
		return &IntegrityVerifier{
			algorithm: algorithmSHA1Constant,
			expected:  shasum,
			encode:    hex.EncodeToString,
			hasher:    sha1.New(),
		}, nil
	}
	return nil, ErrIntegrityUnavailable
}

// Write feeds downloaded bytes to the digest.
func (verifier *IntegrityVerifier) Write(data []byte) (int, error) {
	return verifier.hasher.Write(data)
}

// Verify compares the accumulated digest with the published one.
func (verifier *IntegrityVerifier) Verify() error {
	actual := verifier.encode(verifier.hasher.Sum(nil))
	if actual != verifier.expected {
		return IntegrityError{Algorithm: verifier.algorithm, Expected: verifier.expected, Actual: actual}
	}
	return nil
}

func newHasher(algorithm string) hash.Hash {
	switch algorithm {
	case algorithmSHA384Constant:
		return sha512.New384()
	case algorithmSHA256Constant:
		return sha256.New()
	default:
		return sha512.New()
	}
}
