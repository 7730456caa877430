package json

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/drakos74/latent-cluster/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Event struct {
	Name   string    `json:"name"`
	ID     string    `json:"id"`
	Values []float64 `json:"values"`
}

func TestBlobStorage(t *testing.T) {
	dir := t.TempDir()
	store := NewJsonBlob(dir, "runs", "test", true)

	k := storage.Key{
		Run:   uuid.New().String(),
		Label: storage.ReportLabel,
	}
	ev := Event{
		Name:   "test",
		ID:     uuid.New().String(),
		Values: []float64{0.5, -1},
	}
	require.NoError(t, store.Store(k, ev))

	_, err := os.Stat(filepath.Join(dir, "runs", "test", k.Path()+".json"))
	require.NoError(t, err)

	var loaded Event
	require.NoError(t, store.Load(k, &loaded))
	assert.Equal(t, ev, loaded)

	err = store.Load(storage.Key{Run: "missing", Label: storage.ReportLabel}, &loaded)
	assert.True(t, errors.Is(err, storage.NotFoundErr))
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644))

	var v []float64
	err := Load(dir, "bad.json", &v)
	assert.True(t, errors.Is(err, storage.CouldNotLoadErr))
}

func TestSave_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	err := Save(file, "a.json", 1)
	assert.Error(t, err)
}

func TestMatrixRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := [][]float64{{1, 2, 3}, {4, 5, 6}}
	require.NoError(t, Save(dir, "rows.json", rows))

	var loaded [][]float64
	require.NoError(t, Load(dir, "rows.json", &loaded))
	assert.Equal(t, rows, loaded)
}
