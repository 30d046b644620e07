package scheduler

import (
	"context"
	"errors"

	"github.com/preligens-lab/buzzard/pkg/cache"
)

func testContext() context.Context { return context.Background() }

// failingStore is a cache.Store whose every operation errors, used to
// exercise the I/O-failure paths of Writer and FileHasher without a real
// filesystem.
type failingStore struct{}

func (failingStore) Write(ctx context.Context, id cache.TileID, payload []byte) error {
	return errors.New("failingStore: write refused")
}

func (failingStore) Read(ctx context.Context, id cache.TileID) ([]byte, error) {
	return nil, errors.New("failingStore: read refused")
}

func (failingStore) Validate(ctx context.Context, id cache.TileID) (cache.Status, error) {
	return cache.StatusMissing, errors.New("failingStore: validate refused")
}

func (failingStore) Delete(ctx context.Context, id cache.TileID) error {
	return errors.New("failingStore: delete refused")
}

// discardStore is a cache.Store that always reports a tile missing and
// silently accepts writes, for tests that need a RasterSpec.Store but never
// actually drive FileHasher/Writer I/O.
type discardStore struct{}

func (discardStore) Write(ctx context.Context, id cache.TileID, payload []byte) error { return nil }

func (discardStore) Read(ctx context.Context, id cache.TileID) ([]byte, error) {
	return nil, errors.New("discardStore: nothing stored")
}

func (discardStore) Validate(ctx context.Context, id cache.TileID) (cache.Status, error) {
	return cache.StatusMissing, nil
}

func (discardStore) Delete(ctx context.Context, id cache.TileID) error { return nil }
