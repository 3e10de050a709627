package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/compiler"
	"github.com/roach88/bir/internal/ir"
)

func TestBuildWritesModule(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sum.bir")

	stdout, _, err := execute(t, "build", programPath("sum.cue"), "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Built "+out+" (target bytecode)")

	src, err := compiler.LoadFile(programPath("sum.cue"))
	require.NoError(t, err)
	hash := ir.MustProgramHash(src.Program)
	assert.Contains(t, stdout, "hash: "+hash)

	m, err := codec.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, hash, ir.MustProgramHash(m.Program()))
}

func TestBuildJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "hello.bir")

	stdout, _, err := execute(t, "build", programPath("hello.cue"), "-o", out, "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, stdout)
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bytecode", data["target"])
	assert.Equal(t, out, data["output"])
	assert.Equal(t, false, data["cached"])
	assert.Len(t, data["hash"], 64)
}

func TestBuildDebugWritesScratchFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "sum.bir")
	scratch := filepath.Join(dir, "scratch")

	_, _, err := execute(t, "build", programPath("sum.cue"), "-o", out, "--debug", "--scratch", scratch)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(scratch, "sum.json"))
	dis, err := os.ReadFile(filepath.Join(scratch, "sum.dis"))
	require.NoError(t, err)
	assert.Contains(t, string(dis), "func sum params=1 autos=3")
}

func TestBuildNoStdlib(t *testing.T) {
	out := filepath.Join(t.TempDir(), "hello.bir")

	stdout, _, err := execute(t, "build", programPath("hello.cue"), "-o", out, "--nostdlib")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeBuildFailed+"]")
	assert.Contains(t, stdout, "printf, putchar")
	assert.NoFileExists(t, out)
}

func TestBuildTargetArgs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sum.bir")

	_, _, err := execute(t, "build", programPath("sum.cue"), "-o", out, "--", "--entry", "sum")
	require.NoError(t, err)

	stdout, _, err := execute(t, "build", programPath("sum.cue"), "-o", out, "--", "--bogus")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "open target")
}

func TestBuildUnknownTarget(t *testing.T) {
	stdout, _, err := execute(t, "build", programPath("sum.cue"), "--target", "wasm")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeUnknownTarget+"]")
	assert.Contains(t, stdout, `unknown target "wasm"`)
}

func TestBuildCompileError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte("program: funcs: [{name: 1}]\n"), 0644))

	stdout, _, err := execute(t, "build", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeCompile+"]")
}

func TestBuildMissingProgram(t *testing.T) {
	stdout, _, err := execute(t, "build", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeNotFound+"]")
}

func TestBuildArgs(t *testing.T) {
	_, _, err := execute(t, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s) before --, received 0")

	_, _, err = execute(t, "build", "a.cue", "b.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "received 2")
}

func TestBuildCachesModule(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cache.db")
	out := filepath.Join(dir, "sum.bir")

	stdout, _, err := execute(t, "build", programPath("sum.cue"), "-o", out, "--db", db, "--format", "json")
	require.NoError(t, err)
	data := decodeResponse(t, stdout).Data.(map[string]any)
	assert.Equal(t, true, data["cached"])
	hash := data["hash"].(string)

	stdout, _, err = execute(t, "cache", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, hash+" v1 "+programPath("sum.cue")+" (bir "+ir.ToolVersion+")")

	stdout, _, err = execute(t, "run", hash, "--db", db, "--func", "sum", "--", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sum(3) = 6")

	stdout, _, err = execute(t, "dis", hash, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "func sum params=1 autos=3")
}

func TestCacheRequiresDB(t *testing.T) {
	stdout, _, err := execute(t, "cache")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "no database")
}

func TestCacheEmpty(t *testing.T) {
	stdout, _, err := execute(t, "cache", "--db", filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "No modules cached.")
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("progs", "sum.bir"), defaultOutputPath(filepath.Join("progs", "sum.cue"), ".bir"))
	assert.Equal(t, "prog.bir", defaultOutputPath("./prog/", ".bir"))
	assert.Equal(t, "prog", defaultOutputPath("prog.cue", ""))
}
