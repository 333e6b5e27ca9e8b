package dirfs

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handzsujt/data-dir/datadir"
	"github.com/handzsujt/data-dir/frame"
)

func buildStore(t *testing.T) *datadir.Group {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store")
	root, err := datadir.Open(path, datadir.Create)
	require.NoError(t, err)

	alpha := datadir.NewGroup()
	alpha.Attrs["owner"] = "ops"
	require.NoError(t, root.Set("alpha", alpha))

	f, err := frame.New([]frame.Column{
		{Name: "name", Type: frame.Text},
		{Name: "score", Type: frame.Number},
	})
	require.NoError(t, err)
	require.NoError(t, f.Append("ada", 92.5))
	require.NoError(t, root.Set("alpha/scores", datadir.NewDataSet(f)))
	require.NoError(t, root.Set("alpha/blob", &datadir.Raw{}))

	// Reopen so the view serves a freshly scanned, lazily loaded store.
	re, err := datadir.Open(path, datadir.Read)
	require.NoError(t, err)
	return re
}

func readAll(t *testing.T, v *View, path string) []byte {
	t.Helper()
	f, err := v.Open(path)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return data
}

func TestViewReadDirRoot(t *testing.T) {
	v := NewView(buildStore(t))

	infos, err := v.ReadDir("/")
	require.NoError(t, err)

	var got []string
	for _, fi := range infos {
		got = append(got, fi.Name())
	}
	sort.Strings(got)
	assert.Equal(t, []string{"_attributes.json", "alpha"}, got)
}

func TestViewReadDirGroup(t *testing.T) {
	v := NewView(buildStore(t))

	infos, err := v.ReadDir("/alpha")
	require.NoError(t, err)

	var got []string
	dirs := map[string]bool{}
	for _, fi := range infos {
		got = append(got, fi.Name())
		dirs[fi.Name()] = fi.IsDir()
	}
	sort.Strings(got)
	assert.Equal(t, []string{"_attributes.json", "blob", "scores.json"}, got)
	assert.True(t, dirs["blob"])
	assert.False(t, dirs["scores.json"])
}

func TestViewReadDirRawIsEmpty(t *testing.T) {
	v := NewView(buildStore(t))

	infos, err := v.ReadDir("/alpha/blob")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestViewAttributesDocument(t *testing.T) {
	v := NewView(buildStore(t))

	data := readAll(t, v, "/alpha/_attributes.json")
	doc, err := oj.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"owner": "ops"}, doc)
}

func TestViewDatasetDocument(t *testing.T) {
	v := NewView(buildStore(t))

	data := readAll(t, v, "/alpha/scores.json")
	doc, err := oj.Parse(data)
	require.NoError(t, err)
	m := doc.(map[string]any)
	records := m["records"].([]any)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.Equal(t, "ada", rec["name"])
	assert.Equal(t, 92.5, rec["score"])
}

func TestViewStat(t *testing.T) {
	v := NewView(buildStore(t))

	fi, err := v.Stat("/alpha")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	fi, err = v.Stat("/alpha/scores.json")
	require.NoError(t, err)
	assert.False(t, fi.IsDir())
	assert.Positive(t, fi.Size())

	// The dataset's node directory is hidden behind its .json form.
	_, err = v.Stat("/alpha/scores")
	require.Error(t, err)

	_, err = v.Stat("/nope")
	require.Error(t, err)
}

func TestViewHiddenDatasetPathIsAbsent(t *testing.T) {
	v := NewView(buildStore(t))

	// Every entry point must agree that the node directory does not exist.
	_, err := v.Lstat("/alpha/scores")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = v.Open("/alpha/scores")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = v.ReadDir("/alpha/scores")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestViewRejectsWrites(t *testing.T) {
	v := NewView(buildStore(t))

	_, err := v.Create("/x")
	require.Error(t, err)
	require.Error(t, v.Remove("/alpha"))
	require.Error(t, v.Rename("/alpha", "/beta"))
	require.Error(t, v.MkdirAll("/new", 0o755))
}

func TestViewRenderIsCached(t *testing.T) {
	v := NewView(buildStore(t))

	first := readAll(t, v, "/alpha/scores.json")
	second := readAll(t, v, "/alpha/scores.json")
	assert.Equal(t, first, second)
	assert.Contains(t, v.content, "alpha/scores")
}

func TestHotSwapServesReplacement(t *testing.T) {
	hs := NewHotSwap(NewView(buildStore(t)))

	infos, err := hs.ReadDir("/")
	require.NoError(t, err)
	require.Len(t, infos, 2)

	other := filepath.Join(t.TempDir(), "other")
	root, err := datadir.Open(other, datadir.Create)
	require.NoError(t, err)
	require.NoError(t, root.Set("swapped", datadir.NewGroup()))
	hs.Swap(NewView(root))

	infos, err = hs.ReadDir("/")
	require.NoError(t, err)
	var got []string
	for _, fi := range infos {
		got = append(got, fi.Name())
	}
	sort.Strings(got)
	assert.Equal(t, []string{"_attributes.json", "swapped"}, got)
}
