package compiler

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bir/internal/testutil"
)

func writeCUE(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCUE(t, dir, "answer.cue", "package prog\n"+answerSrc)

	src, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testutil.AnswerProgram(), src.Program)
	require.Len(t, src.Files, 1)
	assert.Equal(t, "answer.cue", filepath.Base(src.Files[0]))
}

func TestLoadDirMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "externs.cue", `package prog

program: externs: ["putchar"]
`)
	writeCUE(t, dir, "main.cue", `package prog

program: funcs: [{
	name: "main", autos: 1
	body: [{op: "call", slot: 0, arg: {extrn: "putchar"}, args: [{lit: 65}]}]
}]
`)

	src, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"putchar"}, src.Program.Externs)
	require.Len(t, src.Program.Funcs, 1)
	assert.Len(t, src.Files, 2)
}

func TestLoadDispatch(t *testing.T) {
	dir := t.TempDir()
	path := writeCUE(t, dir, "sum.cue", "package prog\n"+sumSrc)

	fromFile, err := Load(path)
	require.NoError(t, err)
	fromDir, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, testutil.SumProgram(), fromFile.Program)
	assert.Equal(t, fromFile.Program, fromDir.Program)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := writeCUE(t, t.TempDir(), "prog.txt", "program: {}")
		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a .cue file")
	})

	t.Run("file given to LoadDir", func(t *testing.T) {
		path := writeCUE(t, t.TempDir(), "prog.cue", "program: {}")
		_, err := LoadDir(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("no program", func(t *testing.T) {
		path := writeCUE(t, t.TempDir(), "empty.cue", "package prog\n\nother: 1\n")
		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no program declared")
	})

	t.Run("syntax error", func(t *testing.T) {
		path := writeCUE(t, t.TempDir(), "bad.cue", "package prog\n\nprogram: {\n")
		_, err := LoadFile(path)
		require.Error(t, err)
		assert.True(t, IsCompileError(err))
	})

	t.Run("conflicting values", func(t *testing.T) {
		path := writeCUE(t, t.TempDir(), "conflict.cue", "package prog\n\nprogram: data: \"a\"\nprogram: data: \"b\"\n")
		_, err := LoadFile(path)
		require.Error(t, err)
		assert.True(t, IsCompileError(err))
	})
}
