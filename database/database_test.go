package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := NewHistory(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestRecordAndListPublished(t *testing.T) {
	h := setupTestHistory(t)

	require.NoError(t, h.RecordPublished(Published{Target: "g", ThreadID: "1", PostID: "10", StatusID: "s1", Kind: KindPost, Media: 1}))
	require.NoError(t, h.RecordPublished(Published{Target: "g", ThreadID: "1", StatusID: "s2", Kind: KindDump, Mentions: 2, Media: 3}))
	require.NoError(t, h.RecordPublished(Published{Target: "g", ThreadID: "2", PostID: "20", StatusID: "s3", Kind: KindPost}))

	got, err := h.ListPublished("g", "1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].StatusID)
	assert.Equal(t, KindDump, got[1].Kind)
	assert.Equal(t, 3, got[1].Media)
	assert.NotZero(t, got[0].Timestamp)

	n, err := h.CountPublished(KindPost, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestExclusions(t *testing.T) {
	h := setupTestHistory(t)

	require.NoError(t, h.AddExclusion(Exclusion{Target: "g", ThreadID: "1", Reason: "badword"}))
	require.NoError(t, h.AddExclusion(Exclusion{Target: "g", ThreadID: "1", Reason: "badregex"}))
	require.NoError(t, h.AddExclusion(Exclusion{Target: "v", ThreadID: "9", Reason: "badword"}))

	excluded, err := h.GetExcludedThreads("g")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1": true}, excluded)
}

func TestCleanupOldHistory(t *testing.T) {
	h := setupTestHistory(t)
	old := time.Now().Add(-48 * time.Hour).Unix()

	require.NoError(t, h.RecordPublished(Published{Target: "g", ThreadID: "1", StatusID: "old", Kind: KindPost, Timestamp: old}))
	require.NoError(t, h.RecordPublished(Published{Target: "g", ThreadID: "1", StatusID: "new", Kind: KindPost}))
	require.NoError(t, h.AddExclusion(Exclusion{Target: "g", ThreadID: "2", Reason: "badword", Timestamp: old}))

	removed, err := h.CleanupOldHistory(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	got, err := h.ListPublished("g", "1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].StatusID)
}
