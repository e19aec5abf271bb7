// Package hash implements the DVS streaming hash engine: algorithm-agile
// digesting of files and byte streams, with a memory-map/buffered-read
// threshold mirroring the teacher's filesystem driver's preference for
// large sequential reads.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"
	"lukechampine.com/blake3"

	"github.com/a2-ai/dvs/internal/oid"
)

// MMAPThreshold is the file size at or above which HashFile prefers a
// memory-mapped read over a buffered one, per spec §4.1.
const MMAPThreshold = 16 * 1024

// bufferedReadSize is the chunk size used for files below MMAPThreshold, for
// reads from a memory-mapped file, and for any streaming Reader passed to
// HashReader.
const bufferedReadSize = 64 * 1024

// Hasher is a streaming digest accumulator for one algorithm. Implementations
// hold no more state than their underlying algorithm's block; callers may
// call Update any number of times and Finalize exactly once.
type Hasher interface {
	Update(p []byte) (int, error)
	Finalize() string
}

// NewHasher returns a fresh streaming Hasher for algo, or an error if algo is
// not recognized or disabled in this build.
func NewHasher(algo oid.Algo) (Hasher, error) {
	switch algo {
	case oid.Blake3:
		return &stdHasher{h: blake3.New(32, nil), algo: algo}, nil
	case oid.SHA256:
		return &stdHasher{h: sha256.New(), algo: algo}, nil
	case oid.XXH3:
		return &xxh3Hasher{h: xxh3.New()}, nil
	default:
		return nil, fmt.Errorf("hash: algorithm %q is not available in this build", algo)
	}
}

type stdHasher struct {
	h    hash.Hash
	algo oid.Algo
}

func (s *stdHasher) Update(p []byte) (int, error) { return s.h.Write(p) }

func (s *stdHasher) Finalize() string {
	sum := s.h.Sum(nil)
	if s.algo == oid.Blake3 {
		// 256-bit BLAKE3 output, matching oid.Blake3's 64-hex-char length.
		sum = sum[:32]
	}
	return hex.EncodeToString(sum)
}

type xxh3Hasher struct {
	h *xxh3.Hasher
}

func (x *xxh3Hasher) Update(p []byte) (int, error) { return x.h.Write(p) }

func (x *xxh3Hasher) Finalize() string {
	sum := x.h.Sum128().Bytes()
	return hex.EncodeToString(sum[:8])
}

// HashFile computes the hex digest of the file at path under algo. Files at
// or above MMAPThreshold bytes are memory-mapped and fed to the hasher in
// 64KiB chunks read from the mapping; smaller files are read through a 64KiB
// buffer. The mapped
// region and any open file handle are released before HashFile returns on
// every path, including error returns.
func HashFile(path string, algo oid.Algo) (string, error) {
	hasher, err := NewHasher(algo)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("hash: stat %s: %w", path, err)
	}

	if info.Size() >= MMAPThreshold {
		return hashFileMapped(path, hasher)
	}
	return hashFileBuffered(path, hasher)
}

func hashFileMapped(path string, hasher Hasher) (string, error) {
	r, err := mmap.Open(path)
	if err != nil {
		// Some filesystems (tmpfs variants, certain network mounts) refuse
		// mmap; fall back to a buffered read rather than failing HashFile.
		return hashFileBuffered(path, hasher)
	}
	defer r.Close()

	buf := make([]byte, bufferedReadSize)
	for off := 0; off < r.Len(); {
		n, err := r.ReadAt(buf, int64(off))
		if n > 0 {
			if _, werr := hasher.Update(buf[:n]); werr != nil {
				return "", fmt.Errorf("hash: %s: %w", path, werr)
			}
			off += n
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("hash: %s: %w", path, err)
		}
	}
	return hasher.Finalize(), nil
}

func hashFileBuffered(path string, hasher Hasher) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := HashReader(f, hasher); err != nil {
		return "", fmt.Errorf("hash: %s: %w", path, err)
	}
	return hasher.Finalize(), nil
}

// HashReader streams r through hasher in bufferedReadSize chunks, returning
// the number of bytes consumed. Callers finalize the hasher themselves; this
// allows composing HashReader with io.TeeReader-style pipelines.
func HashReader(r io.Reader, hasher Hasher) (int64, error) {
	buf := make([]byte, bufferedReadSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := hasher.Update(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
	}
}

// Sum computes the hex digest of p under algo in one call.
func Sum(algo oid.Algo, p []byte) (string, error) {
	hasher, err := NewHasher(algo)
	if err != nil {
		return "", err
	}
	if _, err := hasher.Update(p); err != nil {
		return "", err
	}
	return hasher.Finalize(), nil
}
