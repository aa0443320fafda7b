package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyronlee/TransFlow/internal/pipeline"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sentence(id, session string, ts time.Duration, text string) *pipeline.Sentence {
	return &pipeline.Sentence{
		ID:        id,
		SessionID: session,
		Timestamp: ts,
		Text:      text,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSaveAndGet(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, sentence("a", "s1", 1500*time.Millisecond, "hello")))
	got, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, 1500*time.Millisecond, got.Timestamp)
	assert.True(t, got.CreatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestGetMissing(t *testing.T) {
	st := openTemp(t)
	_, err := st.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdersByOffset(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	require.NoError(t, st.Handle(ctx, sentence("b", "s1", 2*time.Second, "second")))
	require.NoError(t, st.Handle(ctx, sentence("a", "s1", time.Second, "first")))
	require.NoError(t, st.Handle(ctx, sentence("c", "s2", 0, "other")))

	got, err := st.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)

	all, err := st.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAttachTranslation(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, sentence("a", "s1", 0, "hola")))

	require.NoError(t, st.AttachTranslation(ctx, "a", "hello"))
	got, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Translation)
	assert.Equal(t, "hola", got.Text)

	assert.ErrorIs(t, st.AttachTranslation(ctx, "missing", "x"), ErrNotFound)
}

func TestSaveReplacesExisting(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, sentence("a", "s1", 0, "draft")))
	require.NoError(t, st.Save(ctx, sentence("a", "s1", 0, "final")))

	got, err := st.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "final", got[0].Text)
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), sentence("a", "s1", 0, "kept")))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.List(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Text)
}
