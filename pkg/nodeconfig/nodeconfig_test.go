package nodeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[node]
id = 42

[link]
interface = socketcan
channel = can0
fd = true

[queue]
capacity = 128
max_hw_filters = 4
session_timeout_ms = 3000
publish_timeout_ms = 500

[subscriptions]
subjects = 1234, 1235
services = 10
`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	cfg, err := Load(writeSample(t, sample))
	require.NoError(t, err)

	assert.EqualValues(t, 42, cfg.NodeID)
	assert.Equal(t, "socketcan", cfg.LinkInterface)
	assert.Equal(t, "can0", cfg.LinkChannel)
	assert.True(t, cfg.CanFD)
	assert.Equal(t, 128, cfg.QueueCapacity)
	assert.Equal(t, 4, cfg.MaxHWFilters)
	assert.Equal(t, 3000, cfg.SessionTimeout)
	assert.Equal(t, 500, cfg.PublishTimeout)
	assert.Equal(t, []frame.SubjectID{1234, 1235}, cfg.Subjects)
	assert.Equal(t, []frame.ServiceID{10}, cfg.Services)
	assert.Equal(t, transport.CanFD, cfg.MTU())
}

func TestDefaultsAppliedWhenSectionsMissing(t *testing.T) {
	cfg, err := Load(writeSample(t, "[node]\nid = 1\n"))
	require.NoError(t, err)

	assert.EqualValues(t, 1, cfg.NodeID)
	assert.Equal(t, Default().QueueCapacity, cfg.QueueCapacity)
	assert.Equal(t, transport.Classic, cfg.MTU())
}

func TestInvalidNodeIDRejected(t *testing.T) {
	_, err := Load(writeSample(t, "[node]\nid = 200\n"))
	assert.Error(t, err)
}
