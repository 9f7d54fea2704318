package logstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
}

func newStoreFixtures() []struct {
	name  string
	store LogStore
} {
	return []struct {
		name  string
		store LogStore
	}{
		{"mem", NewMemStore()},
	}
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	for _, f := range newStoreFixtures() {
		t.Run(f.name, func(t *testing.T) {
			var out sample
			err := f.store.Read("missing", &out)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestWriteThenRead(t *testing.T) {
	for _, f := range newStoreFixtures() {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Write("k1", sample{Name: "a"}))

			var out sample
			require.NoError(t, f.store.Read("k1", &out))
			require.Equal(t, "a", out.Name)
		})
	}
}

func TestWriteAttrsIsIndependentPerKey(t *testing.T) {
	for _, f := range newStoreFixtures() {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.WriteAttrs("bsk", map[string][]byte{"state": []byte("Init")}))
			require.NoError(t, f.store.WriteAttrs("bsk", map[string][]byte{"full_marker": []byte("m1")}))

			attrs, err := f.store.ReadAttrs("bsk")
			require.NoError(t, err)
			require.Equal(t, []byte("Init"), attrs["state"])
			require.Equal(t, []byte("m1"), attrs["full_marker"])
		})
	}
}

func TestOmapGetIsOrderedAndResumable(t *testing.T) {
	for _, f := range newStoreFixtures() {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.OmapAppend("idx", []OmapEntry{
				{Key: "b:3", Value: []byte("3")},
				{Key: "b:1", Value: []byte("1")},
				{Key: "b:2", Value: []byte("2")},
			}))

			entries, err := f.store.OmapGet("idx", "", 100)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			require.Equal(t, "b:1", entries[0].Key)
			require.Equal(t, "b:2", entries[1].Key)
			require.Equal(t, "b:3", entries[2].Key)

			resumed, err := f.store.OmapGet("idx", "b:2", 100)
			require.NoError(t, err)
			require.Len(t, resumed, 2)
			require.Equal(t, "b:2", resumed[0].Key)
		})
	}
}

func TestLockPreventsConcurrentAcquisitionByAnotherCookie(t *testing.T) {
	for _, f := range newStoreFixtures() {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Lock("oid", "lease", "cookie-a", time.Minute))
			err := f.store.Lock("oid", "lease", "cookie-b", time.Minute)
			require.ErrorIs(t, err, ErrLeaseHeld)
		})
	}
}

func TestUnlockRequiresMatchingCookie(t *testing.T) {
	for _, f := range newStoreFixtures() {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Lock("oid", "lease", "cookie-a", time.Minute))
			err := f.store.Unlock("oid", "lease", "cookie-b")
			require.ErrorIs(t, err, ErrLeaseNotHeld)

			require.NoError(t, f.store.Unlock("oid", "lease", "cookie-a"))
		})
	}
}

func TestReacquireLeaseAfterUnlock(t *testing.T) {
	for _, f := range newStoreFixtures() {
		t.Run(f.name, func(t *testing.T) {
			require.NoError(t, f.store.Lock("oid", "lease", "cookie-a", time.Minute))
			require.NoError(t, f.store.Unlock("oid", "lease", "cookie-a"))
			require.NoError(t, f.store.Lock("oid", "lease", "cookie-b", time.Minute))
		})
	}
}
