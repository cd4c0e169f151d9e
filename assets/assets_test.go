// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/wind/assets"
	"github.com/devblok/wind/utility/kar"
	"github.com/gobuffalo/packd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vertexCode   = []byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0}
	fragmentCode = []byte{0x03, 0x02, 0x23, 0x07, 2, 0, 0, 0}
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "assets")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestDir(t *testing.T) {
	dir := tempDir(t)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, assets.VertexShaderPath), vertexCode, 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, assets.FragmentShaderPath), fragmentCode, 0644))

	box, err := assets.Dir(dir)
	require.NoError(t, err)

	code, err := box.Find(assets.VertexShaderPath)
	require.NoError(t, err)
	assert.Equal(t, vertexCode, code)
	assert.NoError(t, assets.Verify(box))

	_, err = box.Find("missing.spv")
	assert.Error(t, err)
}

func TestArchive(t *testing.T) {
	builder, err := kar.NewBuilder(kar.Header{Author: "wind", Version: 1})
	require.NoError(t, err)
	defer builder.Close()
	require.NoError(t, builder.Add(assets.VertexShaderPath, vertexCode))
	require.NoError(t, builder.Add(assets.FragmentShaderPath, fragmentCode))

	path := filepath.Join(tempDir(t), "shaders.kar")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = builder.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	finder, closer, err := assets.Shaders("", path)
	require.NoError(t, err)
	defer closer.Close()

	code, err := finder.Find(assets.FragmentShaderPath)
	require.NoError(t, err)
	assert.Equal(t, fragmentCode, code)

	text, err := finder.FindString(assets.VertexShaderPath)
	require.NoError(t, err)
	assert.Equal(t, string(vertexCode), text)
	assert.NoError(t, assets.Verify(finder))
}

func TestShadersNeedsASource(t *testing.T) {
	_, _, err := assets.Shaders("", "")
	assert.Error(t, err)

	_, _, err = assets.Shaders("", filepath.Join(tempDir(t), "missing.kar"))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	box := packd.NewMemoryBox()
	require.NoError(t, box.AddBytes(assets.VertexShaderPath, vertexCode))
	assert.Error(t, assets.Verify(box), "fragment shader missing")

	require.NoError(t, box.AddBytes(assets.FragmentShaderPath, []byte{1, 2, 3}))
	assert.Error(t, assets.Verify(box), "fragment shader truncated")

	require.NoError(t, box.AddBytes(assets.FragmentShaderPath, fragmentCode))
	assert.NoError(t, assets.Verify(box))
}
