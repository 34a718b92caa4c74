package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyAll(t *testing.T, keys ...string) []Description {
	t.Helper()
	var descs []Description
	for _, key := range keys {
		d, ok := Classify(key)
		require.True(t, ok, "expected %s to classify as a snapshot", key)
		descs = append(descs, d)
	}
	return descs
}

func TestReconcile(t *testing.T) {
	t.Run("keeps highest ordinal and deletes the rest", func(t *testing.T) {
		descs := classifyAll(t,
			"repo/pkg-1.0-SNAPSHOT1.rpm",
			"repo/pkg-1.0-SNAPSHOT3.rpm",
			"repo/pkg-1.0-SNAPSHOT2.rpm",
		)
		plan := Reconcile(descs)

		require.Len(t, plan.Delete, 2)
		assert.Equal(t, "repo/pkg-1.0-SNAPSHOT2.rpm", plan.Delete[0].Key)
		assert.Equal(t, "repo/pkg-1.0-SNAPSHOT1.rpm", plan.Delete[1].Key)

		require.Len(t, plan.Rename, 1)
		assert.Equal(t, "repo/pkg-1.0-SNAPSHOT3.rpm", plan.Rename[0].Source.Key)
		assert.Equal(t, "repo/pkg-1.0-SNAPSHOT.rpm", plan.Rename[0].NewKey)
	})

	t.Run("size-1 group produces nothing", func(t *testing.T) {
		descs := classifyAll(t, "repo/pkg-1.0-SNAPSHOT1.rpm")
		plan := Reconcile(descs)
		assert.Empty(t, plan.Delete)
		assert.Empty(t, plan.Rename)
	})

	t.Run("ordinal ties broken by discovery order", func(t *testing.T) {
		descs := classifyAll(t,
			"repo/pkg-2.0-SNAPSHOT5.a.rpm",
			"repo/pkg-2.0-SNAPSHOT5.b.rpm",
		)
		plan := Reconcile(descs)

		require.Len(t, plan.Delete, 1)
		assert.Equal(t, "repo/pkg-2.0-SNAPSHOT5.b.rpm", plan.Delete[0].Key)
		require.Len(t, plan.Rename, 1)
		assert.Equal(t, "repo/pkg-2.0-SNAPSHOT5.a.rpm", plan.Rename[0].Source.Key)
	})

	t.Run("unparseable ordinal is never kept over a parseable one", func(t *testing.T) {
		descs := classifyAll(t,
			"repo/pkg-3.0-SNAPSHOT.rpm",
			"repo/pkg-3.0-SNAPSHOT1.rpm",
		)
		plan := Reconcile(descs)

		require.Len(t, plan.Delete, 1)
		assert.Equal(t, "repo/pkg-3.0-SNAPSHOT.rpm", plan.Delete[0].Key)
	})

	t.Run("independent groups reconcile separately", func(t *testing.T) {
		descs := classifyAll(t,
			"repo/a-1.0-SNAPSHOT1.rpm",
			"repo/b-1.0-SNAPSHOT1.rpm",
			"repo/a-1.0-SNAPSHOT2.rpm",
		)
		plan := Reconcile(descs)

		require.Len(t, plan.Delete, 1)
		assert.Equal(t, "repo/a-1.0-SNAPSHOT1.rpm", plan.Delete[0].Key)
	})

	t.Run("delete and rename sets are disjoint", func(t *testing.T) {
		descs := classifyAll(t,
			"repo/pkg-1.0-SNAPSHOT1.rpm",
			"repo/pkg-1.0-SNAPSHOT2.rpm",
		)
		plan := Reconcile(descs)

		deleted := make(map[string]bool)
		for _, d := range plan.Delete {
			deleted[d.Key] = true
		}
		for _, r := range plan.Rename {
			assert.False(t, deleted[r.Source.Key])
		}
	})

	t.Run("double marker filename keeps its name", func(t *testing.T) {
		descs := classifyAll(t,
			"repo/pkg-SNAPSHOT-SNAPSHOT1.rpm",
			"repo/pkg-SNAPSHOT-SNAPSHOT2.rpm",
		)
		plan := Reconcile(descs)

		require.Len(t, plan.Delete, 1)
		assert.Empty(t, plan.Rename)
	})

	t.Run("kept file already canonical needs no rename", func(t *testing.T) {
		descs := []Description{
			{Prefix: "repo/pkg-", Key: "repo/pkg-SNAPSHOT.rpm", Ordinal: UnknownOrdinal},
			{Prefix: "repo/pkg-", Key: "repo/pkg-SNAPSHOT.bak.rpm", Ordinal: UnknownOrdinal},
		}
		plan := Reconcile(descs)
		assert.Len(t, plan.Delete, 1)
		assert.Empty(t, plan.Rename)
	})
}

func TestStripNumerics(t *testing.T) {
	t.Run("collapses numeric discriminator", func(t *testing.T) {
		got, ok := stripNumerics("repo/foo-1.0-SNAPSHOT42.noarch.rpm")
		require.True(t, ok)
		assert.Equal(t, "repo/foo-1.0-SNAPSHOT.noarch.rpm", got)
	})

	t.Run("two markers left unchanged", func(t *testing.T) {
		key := "repo/SNAPSHOTSNAPSHOT1.rpm"
		got, ok := stripNumerics(key)
		assert.False(t, ok)
		assert.Equal(t, key, got)
	})

	t.Run("directory path unchanged", func(t *testing.T) {
		got, ok := stripNumerics("a/b/c/foo-SNAPSHOT9.rpm")
		require.True(t, ok)
		assert.Equal(t, "a/b/c/foo-SNAPSHOT.rpm", got)
	})
}
