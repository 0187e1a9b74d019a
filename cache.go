package chameleon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/malthe/chameleon/compiler"
)

// digest computes the content digest chameleon uses as both a cooked
// artifact's Digest() and the disk cache's file name: a hash of the source
// bytes together with every setting that affects code generation, so that
// a settings change invalidates cached artifacts the same way a source
// change does (spec §5).
func digest(src []byte, opts compiler.Options) string {
	h := sha256.New()
	h.Write(src)
	enc, _ := json.Marshal(opts)
	h.Write(enc)
	return hex.EncodeToString(h.Sum(nil))
}

// DiskCache persists cooked-source metadata across processes (spec §6
// "Persisted cache layout"): one "<digest>.chameleon" file per digest of
// source plus code-generation settings, written by atomic rename so
// concurrent readers never observe a partially-written file. The file
// holds only the source path, for debugging. The compiled Program is not
// persisted — package compiler's Program holds closures, which cannot be
// serialized — so every cook parses, binds and compiles from source, and
// Template never reads the cache back (Load is for external callers).
type DiskCache struct {
	Dir string
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.Dir, key+".chameleon")
}

// Load reports whether key has a cache entry, returning its recorded
// source path sidecar for debugging callers.
func (c *DiskCache) Load(key string) (sourcePath string, ok bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Store writes key's sidecar via a temp-file-then-rename sequence, so a
// reader never observes a half-written file (spec §5 "readers are tolerant
// of partially written files").
func (c *DiskCache) Store(key, sourcePath string) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.Dir, "tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(sourcePath); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chameleon: disk cache rename: %w", err)
	}
	return nil
}
