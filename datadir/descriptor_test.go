package datadir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeDescriptor(dir, tagContainer))

	typ, version, err := readDescriptor(dir)
	require.NoError(t, err)
	assert.Equal(t, tagContainer, typ)
	assert.Equal(t, FormatVersion, version)
}

func TestDescriptorLegacyNestedForm(t *testing.T) {
	dir := t.TempDir()
	legacy := `{"ddir": {"type": "dataset", "version": "1.0"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, descriptorFile), []byte(legacy), 0o644))

	typ, version, err := readDescriptor(dir)
	require.NoError(t, err)
	assert.Equal(t, tagDataSet, typ)
	assert.Equal(t, "1.0", version)
}

func TestDescriptorMissing(t *testing.T) {
	_, _, err := readDescriptor(t.TempDir())
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDescriptorMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, descriptorFile), []byte("{nope"), 0o644))

	_, _, err := readDescriptor(dir)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDescriptorNotAnObject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, descriptorFile), []byte(`[1, 2]`), 0o644))

	_, _, err := readDescriptor(dir)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDescriptorWithoutType(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, descriptorFile), []byte(`{"version": "1.0"}`), 0o644))

	_, _, err := readDescriptor(dir)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestAttributesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	attrs := map[string]any{
		"author": "svc",
		"rate":   2.5,
		"active": true,
	}
	require.NoError(t, writeAttributes(dir, attrs))

	got, err := readAttributes(dir)
	require.NoError(t, err)
	assert.Equal(t, attrs, got)
}

func TestAttributesAbsentFileIsEmptyMap(t *testing.T) {
	got, err := readAttributes(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAttributesNilMapWritesEmptyObject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeAttributes(dir, nil))

	got, err := readAttributes(dir)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAttributesNotAMapping(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, attributesFile), []byte(`["a"]`), 0o644))

	_, err := readAttributes(dir)
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.json")
	require.NoError(t, writeFileAtomic(target, []byte(`{}`)))
	require.NoError(t, writeFileAtomic(target, []byte(`{"a": 1}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.json", entries[0].Name())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(data))
}
