package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCentralAndLocal(t *testing.T) {
	dir := t.TempDir()
	centralPath := filepath.Join(dir, "central.yaml")
	localPath := filepath.Join(dir, "node.yaml")

	require.NoError(t, os.WriteFile(centralPath, []byte("nodes: [a, b, c]\nareas: [\"0\", \"1\"]\n"), 0o600))
	require.NoError(t, os.WriteFile(localPath, []byte("node_name: a\nenable_v4: true\ndebounce_min_ms: 10\ndebounce_max_ms: 1000\neor_time_s: 5\n"), 0o600))

	central, err := LoadCentral(centralPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, central.Nodes)
	assert.Equal(t, []string{"0", "1"}, central.Areas)

	local, err := LoadLocal(localPath)
	require.NoError(t, err)
	assert.Equal(t, "a", local.NodeName)
	assert.True(t, local.EnableV4)
	assert.Equal(t, 5*time.Second, local.ColdStartGrace())
	assert.Equal(t, 10*time.Millisecond, local.DebounceMin())
	assert.Equal(t, 1000*time.Millisecond, local.DebounceMax())
}

func TestNameValidator(t *testing.T) {
	assert.NoError(t, NameValidator("node-1.example"))
	assert.Error(t, NameValidator("Invalid Name"))
	assert.Error(t, NameValidator(""))
}

func TestCentralConfigValidatorRejectsDuplicates(t *testing.T) {
	cfg := &CentralCfg{Nodes: []string{"a", "a"}}
	assert.Error(t, CentralConfigValidator(cfg))
}

func TestLocalConfigValidatorRejectsBadDebounceRange(t *testing.T) {
	cfg := &LocalCfg{NodeName: "a", DebounceMinMs: 1000, DebounceMaxMs: 10}
	assert.Error(t, LocalConfigValidator(cfg))
}

func TestLocalConfigValidatorRejectsNegativeEorTime(t *testing.T) {
	cfg := &LocalCfg{NodeName: "a", DebounceMinMs: 10, DebounceMaxMs: 100, EorTimeS: -1}
	assert.Error(t, LocalConfigValidator(cfg))
}

func TestLocalConfigValidatorAccepts(t *testing.T) {
	cfg := &LocalCfg{NodeName: "a", DebounceMinMs: 10, DebounceMaxMs: 100, EorTimeS: 0}
	assert.NoError(t, LocalConfigValidator(cfg))
}
