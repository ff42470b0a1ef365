package download

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	cerrors "github.com/arthur-debert/cellar/pkg/errors"
	"github.com/opencontainers/go-digest"
)

// sha1 is accepted next to the algorithms go-digest registers.
const algSHA1 = "sha1"

// Checksum is a parsed "algorithm:hex" checksum.
type Checksum struct {
	Algorithm string
	Hex       string
}

// String renders the checksum in "algorithm:hex" form.
func (c Checksum) String() string {
	return c.Algorithm + ":" + c.Hex
}

// ParseChecksum parses "algorithm:hex". A bare hex string is accepted and
// its algorithm inferred from its length.
func ParseChecksum(s string) (Checksum, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Checksum{}, cerrors.New(cerrors.ErrIntegrity, "no checksum declared")
	}

	alg, encoded, ok := strings.Cut(s, ":")
	if !ok {
		encoded = alg
		switch len(encoded) {
		case 40:
			alg = algSHA1
		case 64:
			alg = string(digest.SHA256)
		case 96:
			alg = string(digest.SHA384)
		case 128:
			alg = string(digest.SHA512)
		default:
			return Checksum{}, cerrors.Newf(cerrors.ErrIntegrity, "cannot infer checksum algorithm for %q", s)
		}
	}

	if alg == algSHA1 {
		if len(encoded) != 40 {
			return Checksum{}, cerrors.Newf(cerrors.ErrIntegrity, "invalid sha1 checksum %q", s)
		}
		if _, err := hex.DecodeString(encoded); err != nil {
			return Checksum{}, cerrors.Wrapf(err, cerrors.ErrIntegrity, "invalid sha1 checksum %q", s)
		}
		return Checksum{Algorithm: alg, Hex: encoded}, nil
	}

	a := digest.Algorithm(alg)
	if !a.Available() {
		return Checksum{}, cerrors.Newf(cerrors.ErrIntegrity, "unsupported checksum algorithm %q", alg)
	}
	if err := a.Validate(encoded); err != nil {
		return Checksum{}, cerrors.Wrapf(err, cerrors.ErrIntegrity, "invalid %s checksum", alg)
	}
	return Checksum{Algorithm: alg, Hex: encoded}, nil
}

func (c Checksum) hasher() hash.Hash {
	if c.Algorithm == algSHA1 {
		return sha1.New()
	}
	return digest.Algorithm(c.Algorithm).Hash()
}

// Verify hashes the file at path and compares it against the declared
// checksum, returning the checksum that was computed.
func Verify(path, declared string) (Checksum, error) {
	want, err := ParseChecksum(declared)
	if err != nil {
		return Checksum{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Checksum{}, cerrors.Wrapf(err, cerrors.ErrFilesystem, "opening %s", path)
	}
	defer f.Close()

	h := want.hasher()
	if _, err := io.Copy(h, f); err != nil {
		return Checksum{}, cerrors.Wrapf(err, cerrors.ErrFilesystem, "reading %s", path)
	}

	got := Checksum{Algorithm: want.Algorithm, Hex: hex.EncodeToString(h.Sum(nil))}
	if got.Hex != want.Hex {
		return got, cerrors.Newf(cerrors.ErrIntegrity, "checksum mismatch for %s", path).
			WithDetail("expected", want.String()).
			WithDetail("actual", got.String())
	}
	return got, nil
}
