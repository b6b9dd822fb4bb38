package voice

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func styleJSON(dim int) string {
	vec := make([]float32, dim)
	data, _ := json.Marshal(vec)
	return string(data)
}

func TestLoadDataDefaults(t *testing.T) {
	r := NewRegistry(4, newLogger())
	id, err := r.LoadData("jf_alpha", []byte(`{"style":[0.1,0.2,0.3,0.4]}`))
	require.NoError(t, err)
	assert.Equal(t, "jf_alpha", id)

	v, err := r.Get("jf_alpha")
	require.NoError(t, err)
	assert.Equal(t, "jf_alpha", v.Name)
	assert.Equal(t, "ja", v.Language)
	assert.Equal(t, GenderNeutral, v.Gender)
	assert.Equal(t, float32(1.0), v.DefaultSpeed)
	assert.Equal(t, float32(1.0), v.DefaultPitch)
}

func TestFirstLoadedBecomesDefault(t *testing.T) {
	r := NewRegistry(0, newLogger())
	_, err := r.LoadData("first", []byte(`{"style":[0.0]}`))
	require.NoError(t, err)
	_, err = r.LoadData("second", []byte(`{"style":[0.0]}`))
	require.NoError(t, err)

	assert.Equal(t, "first", r.DefaultID())
	require.NoError(t, r.SetDefault("second"))
	assert.Equal(t, "second", r.DefaultID())
}

func TestStyleDimensionMismatchRejected(t *testing.T) {
	r := NewRegistry(128, newLogger())
	_, err := r.LoadData("bad", []byte(`{"style":[0.1,0.2]}`))
	require.ErrorIs(t, err, ErrStyleDimension)
	assert.Zero(t, r.Len())
}

func TestMissingStyleGetsZeroVector(t *testing.T) {
	r := NewRegistry(8, newLogger())
	_, err := r.LoadData("plain", []byte(`{"name":"Plain"}`))
	require.NoError(t, err)

	v, err := r.Get("plain")
	require.NoError(t, err)
	assert.Len(t, v.StyleVector, 8)
}

func TestLoadDirSkipsBrokenDescriptors(t *testing.T) {
	tmp := t.TempDir()
	good := fmt.Sprintf(`{"id":"alpha","gender":"female","style":%s}`, styleJSON(4))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "alpha.json"), []byte(good), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "broken.json"), []byte(`{nope`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "ignored.txt"), []byte(`x`), 0o644))

	r := NewRegistry(4, newLogger())
	loaded, err := r.LoadDir(tmp)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.Equal(t, 1, r.Len())

	v, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, v.Gender)
}

func TestGetUnknownVoice(t *testing.T) {
	r := NewRegistry(0, newLogger())
	_, err := r.Get("ghost")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestUnloadResetsDefault(t *testing.T) {
	r := NewRegistry(0, newLogger())
	_, _ = r.LoadData("a", []byte(`{"style":[0.0]}`))
	_, _ = r.LoadData("b", []byte(`{"style":[0.0]}`))

	require.True(t, r.Unload("a"))
	assert.Equal(t, "b", r.DefaultID())
	assert.False(t, r.Unload("a"))
}

func TestExportRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	r := NewRegistry(2, newLogger())
	_, err := r.LoadData("jf_alpha", []byte(`{"gender":"female","style_vector":[0.5,-0.5],"default_speed":1.1}`))
	require.NoError(t, err)

	out := filepath.Join(tmp, "exported.json")
	require.NoError(t, r.Export("jf_alpha", out))

	r2 := NewRegistry(2, newLogger())
	id, err := r2.LoadFile(out)
	require.NoError(t, err)
	v, err := r2.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, v.StyleVector)
	assert.Equal(t, float32(1.1), v.DefaultSpeed)
	assert.Equal(t, GenderFemale, v.Gender)
}

func TestMemoryUsage(t *testing.T) {
	r := NewRegistry(4, newLogger())
	_, _ = r.LoadData("a", []byte(`{"style":[0.1,0.2,0.3,0.4]}`))
	assert.GreaterOrEqual(t, r.MemoryUsage(), 16)
}
