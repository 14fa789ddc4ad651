package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/chartup/internal/uploader"
)

func placeObject(t *testing.T, root, key, content string) {
	t.Helper()
	dest := filepath.Join(root, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte(content), 0o644))
}

func TestVerifyCommand(t *testing.T) {
	cfg := diskConfig(t)
	local := writeLocal(t, "chart.tgz", "chart bytes")
	placeObject(t, cfg.DiskRoot, "stable/chart.tgz", "chart bytes")

	streams, out, errOut := testStreams()
	o := NewVerifyOptions(streams)
	o.cfg = cfg

	cmd := NewVerifyCommand(o)
	cmd.SetOut(errOut)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{local, "stable/chart.tgz"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "stable/chart.tgz matches")
}

func TestVerifyCommand_Mismatch(t *testing.T) {
	cfg := diskConfig(t)
	local := writeLocal(t, "chart.tgz", "local bytes")
	placeObject(t, cfg.DiskRoot, "stable/chart.tgz", "remote bytes")

	streams, out, errOut := testStreams()
	o := NewVerifyOptions(streams)
	o.cfg = cfg

	cmd := NewVerifyCommand(o)
	cmd.SetOut(errOut)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{local, "stable/chart.tgz"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, uploader.ErrHashMismatch)
	assert.NotContains(t, out.String(), "matches")
}

func TestVerifyCommand_AbsentObject(t *testing.T) {
	cfg := diskConfig(t)
	local := writeLocal(t, "chart.tgz", "chart bytes")

	streams, _, errOut := testStreams()
	o := NewVerifyOptions(streams)
	o.cfg = cfg

	cmd := NewVerifyCommand(o)
	cmd.SetOut(errOut)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{local, "stable/absent.tgz"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to stat")
}

func TestVerifyCommand_ArgumentCount(t *testing.T) {
	streams, _, errOut := testStreams()
	o := NewVerifyOptions(streams)

	cmd := NewVerifyCommand(o)
	cmd.SetOut(errOut)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"only-one.tgz"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorContains(t, err, "expected LOCAL_FILE and REMOTE_NAME")
}
