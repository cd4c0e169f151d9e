// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/devblok/wind/model"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatAt(buf []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
}

func TestUniformBytes(t *testing.T) {
	u := model.Identity()
	u.Projection = glm.Translate3D(1, 2, 3)

	buf := u.Bytes()
	require.Len(t, buf, model.UniformSize)
	assert.Equal(t, float32(1), floatAt(buf, 0))
	assert.Equal(t, float32(0), floatAt(buf, 1))
	// column-major: translation sits in the last column
	assert.Equal(t, float32(1), floatAt(buf, 32+12))
	assert.Equal(t, float32(2), floatAt(buf, 32+13))
	assert.Equal(t, float32(3), floatAt(buf, 32+14))
}

func TestVertexBytes(t *testing.T) {
	vertices := model.Triangle()
	buf := model.VertexBytes(vertices)
	require.Len(t, buf, len(vertices)*model.VertexSize)

	second := buf[model.VertexSize:]
	assert.Equal(t, vertices[1].Pos[0], floatAt(second, 0))
	assert.Equal(t, vertices[1].Color[2], floatAt(second, 3+2))
}

func TestVertexLayout(t *testing.T) {
	bindings := model.VertexBindingDescriptions()
	require.Len(t, bindings, 1)
	assert.Equal(t, uint32(model.VertexSize), bindings[0].Stride)

	attrs := model.VertexAttributeDescriptions()
	require.Len(t, attrs, 2)
	assert.Equal(t, uint32(0), attrs[0].Offset)
	assert.Equal(t, uint32(12), attrs[1].Offset)
	assert.Equal(t, uint32(1), attrs[1].Location)
}

func BenchmarkUniformBytes(b *testing.B) {
	u := model.Identity()
	for i := 0; i < b.N; i++ {
		_ = u.Bytes()
	}
}
