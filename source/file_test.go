package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/rulezilla/entity"
)

func receive(t *testing.T, records <-chan entity.RawRecord) entity.RawRecord {
	t.Helper()

	select {
	case r := <-records:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a record")
		return entity.RawRecord{}
	}
}

func TestFileRecordSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"age\": 20}\n{\"age\": 30}\r\n"), 0o644))

	src, err := NewFileRecordSource(nil, FileRecordSourceConfig{Name: "people", Path: path, FromStart: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := make(chan entity.RawRecord, 10)
	done := make(chan error, 1)
	go func() { done <- src.Provide(ctx, records) }()

	first := receive(t, records)
	assert.Equal(t, "people", first.Source)
	assert.Equal(t, `{"age": 20}`, string(first.Data))
	assert.Equal(t, `{"age": 30}`, string(receive(t, records).Data))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteString(`{"age": `)
	require.NoError(t, err)
	_, err = f.WriteString("40}\n")
	require.NoError(t, err)

	assert.Equal(t, `{"age": 40}`, string(receive(t, records).Data))

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Provide did not return after cancellation")
	}
}

func TestFileRecordSourceFollowsRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	src, err := NewFileRecordSource(nil, FileRecordSourceConfig{Name: "app", Path: path, FromStart: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := make(chan entity.RawRecord, 10)
	go func() { _ = src.Provide(ctx, records) }()

	assert.Equal(t, "old", string(receive(t, records).Data))

	require.NoError(t, os.Rename(path, filepath.Join(dir, "app.log.1")))
	require.NoError(t, os.WriteFile(path, []byte("new 1\nnew 2\n"), 0o644))

	assert.Equal(t, "new 1", string(receive(t, records).Data))
	assert.Equal(t, "new 2", string(receive(t, records).Data))
}

func TestFileRecordSourceConfig(t *testing.T) {
	_, err := NewFileRecordSource(nil, FileRecordSourceConfig{Name: "empty"})
	assert.Error(t, err)

	src, err := NewFileRecordSource(nil, FileRecordSourceConfig{Name: "missing", Path: filepath.Join(t.TempDir(), "nope")})
	require.NoError(t, err)

	err = src.Provide(context.Background(), make(chan entity.RawRecord))
	assert.ErrorContains(t, err, "cannot open file")
}
