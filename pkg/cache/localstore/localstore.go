// Package localstore is the canonical cache.Store: one directory per
// raster on local disk, atomic publish via temp-file-then-rename, exactly
// as spec.md §6 and §4.8 specify. The write discipline (create, copy,
// close, clean up on failure) is adapted from
// rda/pkg/rda/realizer.go's processJob, extended with the fsync-then-rename
// durability spec.md demands that a plain tile download doesn't need.
package localstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/preligens-lab/buzzard/pkg/cache"
)

// Store writes tiles under Dir/<raster-id>/<tile-index>.<H>.<ext>.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, errors.Wrapf(err, "localstore: failed creating cache root %s", dir)
	}
	return &Store{Dir: dir}, nil
}

var _ cache.Store = (*Store)(nil)

func (s *Store) rasterDir(rasterID string) string {
	return filepath.Join(s.Dir, rasterID)
}

func (s *Store) path(id cache.TileID) string {
	return filepath.Join(s.rasterDir(id.RasterID), id.FileName())
}

// Write implements the atomic-publication sequence spec.md §4.8 and §6
// require: write tmp → fsync tmp → rename → fsync dir.
func (s *Store) Write(ctx context.Context, id cache.TileID, payload []byte) error {
	dir := s.rasterDir(id.RasterID)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return errors.Wrapf(err, "localstore: failed creating raster cache dir %s", dir)
	}

	buf, err := cache.EncodeTile(id.Fingerprint, payload)
	if err != nil {
		return err
	}

	nonce, err := randomNonce()
	if err != nil {
		return errors.Wrap(err, "localstore: failed generating temp-file nonce")
	}
	tmpPath := filepath.Join(dir, id.TempFileName(os.Getpid(), nonce))

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return errors.Wrapf(err, "localstore: failed creating temp file for tile %s", id.FileName())
	}

	if _, err := f.Write(buf); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "localstore: failed writing temp file for tile %s", id.FileName())
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "localstore: failed fsyncing temp file for tile %s", id.FileName())
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "localstore: failed closing temp file for tile %s", id.FileName())
	}

	if err := os.Rename(tmpPath, s.path(id)); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "localstore: failed renaming temp file into place for tile %s", id.FileName())
	}

	if err := fsyncDir(dir); err != nil {
		return errors.Wrapf(err, "localstore: failed fsyncing cache dir %s after publishing tile %s", dir, id.FileName())
	}
	return nil
}

func (s *Store) Read(ctx context.Context, id cache.TileID) ([]byte, error) {
	buf, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, errors.Wrapf(err, "localstore: failed reading tile %s", id.FileName())
	}
	status, payload, err := cache.ValidateBytes(buf, id.Fingerprint)
	if err != nil {
		return nil, err
	}
	if status != cache.StatusValid {
		return nil, errors.Errorf("localstore: tile %s is not valid, refusing to serve it", id.FileName())
	}
	return payload, nil
}

func (s *Store) Validate(ctx context.Context, id cache.TileID) (cache.Status, error) {
	buf, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return cache.StatusMissing, nil
	}
	if err != nil {
		return cache.StatusMissing, errors.Wrapf(err, "localstore: failed reading tile %s for validation", id.FileName())
	}
	status, _, err := cache.ValidateBytes(buf, id.Fingerprint)
	return status, err
}

func (s *Store) Delete(ctx context.Context, id cache.TileID) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "localstore: failed deleting tile %s", id.FileName())
	}
	return nil
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func randomNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
