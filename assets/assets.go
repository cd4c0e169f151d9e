// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package assets supplies compiled shader binaries to the renderer. Shaders
// come either from a directory or from a kar archive; both satisfy
// packd.Finder.
package assets

import (
	"io"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/utility/kar"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
	"golang.org/x/exp/mmap"
)

// Fixed names of the pipeline shaders.
const (
	VertexShaderPath   = "shader.vert.spv"
	FragmentShaderPath = "shader.frag.spv"
)

// ShaderPaths lists every shader a pipeline needs.
var ShaderPaths = []string{VertexShaderPath, FragmentShaderPath}

// Dir returns a box over the shaders in dir. Relative paths are taken
// from the working directory, not from the calling source file as packr
// would otherwise do.
func Dir(dir string) (packd.Finder, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", dir)
	}
	return packr.NewBox(abs), nil
}

// Archive serves shaders from a memory mapped kar archive.
type Archive struct {
	file    *mmap.ReaderAt
	archive *kar.Archive
}

// OpenArchive maps the kar archive at path.
func OpenArchive(path string) (*Archive, error) {
	file, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %s", path)
	}
	archive, err := kar.Open(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return &Archive{file: file, archive: archive}, nil
}

// Find returns the decompressed contents of name.
func (a *Archive) Find(name string) ([]byte, error) {
	return a.archive.ReadAll(name)
}

// FindString returns the decompressed contents of name as a string.
func (a *Archive) FindString(name string) (string, error) {
	data, err := a.Find(name)
	return string(data), err
}

// Close unmaps the archive.
func (a *Archive) Close() error {
	return a.file.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Shaders picks the shader source: the archive when one is configured,
// otherwise the directory. The returned closer releases the archive.
func Shaders(dir, archive string) (packd.Finder, io.Closer, error) {
	if archive != "" {
		a, err := OpenArchive(archive)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	}
	if dir == "" {
		return nil, nil, errors.New("neither a shader directory nor an archive is configured")
	}
	box, err := Dir(dir)
	if err != nil {
		return nil, nil, err
	}
	return box, nopCloser{}, nil
}

// Verify checks that shaders holds every pipeline shader.
func Verify(shaders packd.Finder) error {
	for _, name := range ShaderPaths {
		code, err := shaders.Find(name)
		if err != nil {
			return errors.Wrapf(err, "shader %s", name)
		}
		if len(code) == 0 || len(code)%4 != 0 {
			return errors.Newf("shader %s: %d bytes is not SPIR-V", name, len(code))
		}
	}
	return nil
}
