package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/build"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/bir/internal/ir"
)

// Source is a compiled program together with where it came from.
type Source struct {
	Program *ir.Program
	Files   []string
}

// LoadFile compiles the `program` declared in a single CUE file.
func LoadFile(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("load %s: is a directory", path)
	}
	if filepath.Ext(path) != ".cue" {
		return nil, fmt.Errorf("load %s: not a .cue file", path)
	}
	dir, file := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return loadInstance(dir, file)
}

// LoadDir compiles the `program` declared by the CUE package in dir.
func LoadDir(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("load %s: not a directory", dir)
	}
	return loadInstance(dir, ".")
}

// Load dispatches to LoadFile or LoadDir depending on what path names.
func Load(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

func loadInstance(dir, arg string) (*Source, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{arg}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load %s: no CUE instances loaded", dir)
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err, "load")
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err, "build")
	}

	pv := value.LookupPath(cue.ParsePath("program"))
	if !pv.Exists() {
		return nil, &CompileError{
			Field:   "program",
			Message: "no program declared",
			Pos:     value.Pos(),
		}
	}
	p, err := Compile(pv)
	if err != nil {
		return nil, err
	}
	return &Source{Program: p, Files: instanceFiles(inst)}, nil
}

func instanceFiles(inst *build.Instance) []string {
	files := make([]string, 0, len(inst.BuildFiles))
	for _, f := range inst.BuildFiles {
		files = append(files, f.Filename)
	}
	return files
}
