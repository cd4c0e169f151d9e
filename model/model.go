// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model declares the data the renderer feeds to its shaders.
package model

import (
	"encoding/binary"
	"math"

	"github.com/devblok/wind/gfx/driver"
	glm "github.com/go-gl/mathgl/mgl32"
)

// VertexSize is the size in bytes of one encoded Vertex.
const VertexSize = 7 * 4

// UniformSize is the size in bytes of an encoded Uniform.
const UniformSize = 3 * 16 * 4

// Vertex is a model vertex
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec4
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// Bytes encodes the uniform as three column-major float32 matrices in
// little-endian order, the layout the vertex shader reads.
func (u Uniform) Bytes() []byte {
	buf := make([]byte, 0, UniformSize)
	buf = appendFloats(buf, u.Model[:])
	buf = appendFloats(buf, u.View[:])
	return appendFloats(buf, u.Projection[:])
}

// Identity returns a uniform with every matrix set to identity.
func Identity() Uniform {
	return Uniform{
		Model:      glm.Ident4(),
		View:       glm.Ident4(),
		Projection: glm.Ident4(),
	}
}

// VertexBytes encodes vertices for upload into a vertex buffer.
func VertexBytes(vertices []Vertex) []byte {
	buf := make([]byte, 0, len(vertices)*VertexSize)
	for _, v := range vertices {
		buf = appendFloats(buf, v.Pos[:])
		buf = appendFloats(buf, v.Color[:])
	}
	return buf
}

func appendFloats(buf []byte, fs []float32) []byte {
	var b [4]byte
	for _, f := range fs {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		buf = append(buf, b[:]...)
	}
	return buf
}

// VertexBindingDescriptions return vertex buffer bindings
func VertexBindingDescriptions() []driver.VertexBinding {
	return []driver.VertexBinding{{
		Binding: 0,
		Stride:  VertexSize,
	}}
}

// VertexAttributeDescriptions return vertex shader inputs
func VertexAttributeDescriptions() []driver.VertexAttribute {
	return []driver.VertexAttribute{
		{
			Binding:  0,
			Location: 0,
			Format:   driver.FormatR32G32B32Sfloat,
			Offset:   0,
		},
		{
			Binding:  0,
			Location: 1,
			Format:   driver.FormatR32G32B32A32Sfloat,
			Offset:   3 * 4,
		},
	}
}

// Triangle returns a single colored triangle in clip space, wound
// counter-clockwise.
func Triangle() []Vertex {
	return []Vertex{
		{Pos: glm.Vec3{0, -0.5, 0}, Color: glm.Vec4{1, 0, 0, 1}},
		{Pos: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec4{0, 0, 1, 1}},
		{Pos: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec4{0, 1, 0, 1}},
	}
}
