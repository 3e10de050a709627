package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/testutil"
)

func TestDisText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.bir")
	require.NoError(t, codec.WriteFile(path, testutil.AnswerProgram()))

	stdout, _, err := execute(t, "dis", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "; bir module version 1")
	assert.Contains(t, stdout, "func main")
}

func TestDisJSON(t *testing.T) {
	stdout, _, err := execute(t, "dis", programPath("sum.cue"), "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, stdout)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["version"])
	funcs := data["funcs"].([]any)
	require.Len(t, funcs, 1)
	assert.Equal(t, "sum", funcs[0].(map[string]any)["name"])
}

func TestDisMissingModule(t *testing.T) {
	stdout, _, err := execute(t, "dis", filepath.Join(t.TempDir(), "missing.bir"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeNotFound+"]")
}
