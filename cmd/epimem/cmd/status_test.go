package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd_NotInitialized(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir = tmpDir
	defer func() { dataDir = "" }()

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"status"})

	err := cmd.Execute()
	assert.Error(t, err, "status on an uninitialized data directory should fail")
}

func TestStatusCmd_ReportsHealthSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir = tmpDir
	defer func() { dataDir = "" }()

	require.NoError(t, newInitCmd().Execute())

	cmd := NewRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"status"})

	require.NoError(t, cmd.Execute())

	output := stdout.String()
	assert.Contains(t, output, tmpDir)
	assert.Contains(t, output, "Episodes: 0")
}
