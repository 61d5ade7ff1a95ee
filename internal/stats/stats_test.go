package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMerge(t *testing.T) {
	var a, b RunStats
	a.Scanned.Add(10)
	a.CorruptRecords.Add(1)
	b.Scanned.Add(5)
	b.OrphanDelegations.Add(2)

	a.Merge(&b)
	assert.Equal(t, uint64(15), a.Scanned.Load())
	assert.Equal(t, uint64(1), a.CorruptRecords.Load())
	assert.Equal(t, uint64(2), a.OrphanDelegations.Load())
}

func TestWriteReport(t *testing.T) {
	var s RunStats
	s.Scanned.Add(100)
	s.VoteAccounts.Add(3)

	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, s.WriteReport(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]uint64
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, uint64(100), got["scanned"])
	assert.Equal(t, uint64(3), got["vote_accounts"])
}

// path 为空时跳过输出
func TestWriteReportDisabled(t *testing.T) {
	var s RunStats
	assert.NoError(t, s.WriteReport(""))
}
