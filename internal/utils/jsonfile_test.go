package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSONFile(path, payload{Name: "epoch-500", Count: 3}))

	var got payload
	found, err := ReadJSONFile(path, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, payload{Name: "epoch-500", Count: 3}, got)

	// 目录里不应残留临时文件
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// 文件不存在是合法状态，不是错误
func TestReadJSONFileMissing(t *testing.T) {
	var got payload
	found, err := ReadJSONFile(filepath.Join(t.TempDir(), "absent.json"), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadJSONFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))
	_, err := ReadJSONFile(path, &payload{})
	assert.Error(t, err)
}

// 多目标写入：任一目标编码失败时所有目标都不出现
func TestWriteJSONFilesAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.json")
	bad := filepath.Join(dir, "b.json")

	err := WriteJSONFiles(
		JSONTarget{Path: good, Value: payload{Name: "ok"}},
		JSONTarget{Path: bad, Value: make(chan int)}, // JSON 不可编码
	)
	require.Error(t, err)

	_, statErr := os.Stat(good)
	assert.True(t, os.IsNotExist(statErr), "失败时不应出现任何目标文件")
	_, statErr = os.Stat(bad)
	assert.True(t, os.IsNotExist(statErr))

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "临时文件应全部清理")
}

func TestWriteJSONFilesSuccess(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, WriteJSONFiles(
		JSONTarget{Path: a, Value: payload{Name: "a"}},
		JSONTarget{Path: b, Value: payload{Name: "b"}},
	))

	var got payload
	found, err := ReadJSONFile(b, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", got.Name)
}
