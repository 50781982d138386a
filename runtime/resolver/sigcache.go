package resolver

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/kh-lang/kh/core/types"
)

const (
	// sigCacheMagic is the cache file magic number (4 bytes).
	sigCacheMagic = "KHSC"

	// sigCacheVersion is the format version (uint16, little-endian).
	// Breaking changes increment it; an unknown version is treated as stale.
	sigCacheVersion uint16 = 0x0001
)

// ErrStaleCache means the cache does not describe the current source set:
// a recorded file changed, disappeared, or the set itself differs. Callers
// fall back to a fresh signature scan.
var ErrStaleCache = errors.New("signature cache is stale")

// sigCacheBody is the CBOR payload following the fixed preamble. Field keys
// are integers to keep the encoding compact and stable across renames.
type sigCacheBody struct {
	Sources    []sigCacheSource   `cbor:"1,keyasint"`
	Signatures []*types.Signature `cbor:"2,keyasint"`
}

type sigCacheSource struct {
	Path   string   `cbor:"1,keyasint"`
	Digest [32]byte `cbor:"2,keyasint"`
}

func digestFile(path string) ([32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

// WriteSigCache writes the scanned signature table for a set of source files.
// Format: MAGIC(4) | VERSION(2, little-endian) | CBOR body. Each source file
// is recorded with a BLAKE2b-256 digest of its current contents; the cache is
// only ever served back while every digest still matches.
func WriteSigCache(w io.Writer, files []string, sigs []*types.Signature) error {
	body := sigCacheBody{Signatures: sigs}
	for _, f := range files {
		d, err := digestFile(f)
		if err != nil {
			return fmt.Errorf("digesting %s: %w", f, err)
		}
		body.Sources = append(body.Sources, sigCacheSource{Path: f, Digest: d})
	}

	payload, err := cbor.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding signature cache: %w", err)
	}

	if _, err := io.WriteString(w, sigCacheMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, sigCacheVersion); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ReadSigCache reads a cache and verifies every recorded source digest
// against the file on disk. The files argument is the source set the caller
// is about to load; any difference from the recorded set is staleness, not
// an error.
func ReadSigCache(r io.Reader, files []string) ([]*types.Signature, error) {
	var preamble [6]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, fmt.Errorf("reading cache preamble: %w", err)
	}
	if string(preamble[0:4]) != sigCacheMagic {
		return nil, fmt.Errorf("invalid cache magic %q", preamble[0:4])
	}
	if binary.LittleEndian.Uint16(preamble[4:6]) != sigCacheVersion {
		return nil, ErrStaleCache
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading cache body: %w", err)
	}
	var body sigCacheBody
	if err := cbor.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decoding cache body: %w", err)
	}

	if len(body.Sources) != len(files) {
		return nil, ErrStaleCache
	}
	recorded := make(map[string][32]byte, len(body.Sources))
	for _, src := range body.Sources {
		recorded[src.Path] = src.Digest
	}
	for _, f := range files {
		want, ok := recorded[f]
		if !ok {
			return nil, ErrStaleCache
		}
		got, err := digestFile(f)
		if err != nil || got != want {
			return nil, ErrStaleCache
		}
	}

	return body.Signatures, nil
}

// WriteSigCacheFile is WriteSigCache against a path, written atomically via
// a sibling temp file.
func WriteSigCacheFile(path string, files []string, sigs []*types.Signature) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sigcache-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteSigCache(tmp, files, sigs); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadSigCacheFile is ReadSigCache against a path. A missing file reads as
// stale.
func ReadSigCacheFile(path string, files []string) ([]*types.Signature, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStaleCache
		}
		return nil, err
	}
	defer f.Close()
	return ReadSigCache(f, files)
}
