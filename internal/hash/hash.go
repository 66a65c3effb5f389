// Package hash computes the canonical content hash over interface files
// and reads the current.txt baseline used for ABI-stability gating.
package hash

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Size is the digest width in bytes.
const Size = sha256.Size

// File hashes the exact contents of the file at path.
func File(path string) ([Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Hex renders a digest as lowercase hex.
func Hex(sum [Size]byte) string {
	return hex.EncodeToString(sum[:])
}

// HexFile is File followed by Hex.
func HexFile(path string) (string, error) {
	sum, err := File(path)
	if err != nil {
		return "", err
	}
	return Hex(sum), nil
}

// Baseline is the parsed form of a current.txt file: one
// "<lowercase-hex> <fqn>" pair per line, #-comments and blank lines
// allowed. An FQN may be frozen at several hashes.
type Baseline struct {
	hashes map[string][]string
}

// ReadBaseline parses the baseline at path. A missing file yields an empty
// baseline, not an error: packages without a current.txt are unfrozen.
func ReadBaseline(path string) (*Baseline, error) {
	b := &Baseline{hashes: make(map[string][]string)}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 || len(fields[0]) != 2*Size {
			return nil, fmt.Errorf("%s:%d: expected \"<hash> <fqn>\"", path, lineno)
		}
		if _, err := hex.DecodeString(fields[0]); err != nil {
			return nil, fmt.Errorf("%s:%d: bad hash: %v", path, lineno, err)
		}
		b.hashes[fields[1]] = append(b.hashes[fields[1]], strings.ToLower(fields[0]))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// HashesFor returns the frozen hashes recorded for fqName, oldest first.
func (b *Baseline) HashesFor(fqName string) []string {
	return b.hashes[fqName]
}

// Frozen reports whether fqName appears in the baseline at all.
func (b *Baseline) Frozen(fqName string) bool {
	return len(b.hashes[fqName]) > 0
}
