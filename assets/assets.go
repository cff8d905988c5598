// Package assets embeds the default vertex data and shader.
//
// The shape is a house silhouette drawn as a five-vertex triangle strip: a
// square body and a roof apex.
package assets

import "embed"

// Names of the embedded sources.
const (
	Vertices = "shape.vertices"
	Shader   = "shaders.wgsl"
)

// FS holds shape.vertices and shaders.wgsl at its root.
//
//go:embed shape.vertices shaders.wgsl
var FS embed.FS
