package models

import (
	"github.com/taigrr/nanoview/pkg/gfx"
)

// Semantic names the sampler family a texture binds to. Samplers in a
// shader are named by semantic and a 1-based counter: texture_diffuse1,
// texture_diffuse2, texture_specular1 and so on.
type Semantic string

const (
	SemanticDiffuse  Semantic = "texture_diffuse"
	SemanticSpecular Semantic = "texture_specular"
	SemanticNormal   Semantic = "texture_normal"
	SemanticHeight   Semantic = "texture_height"
)

// Texture is an uploaded image and the role it plays in a material.
type Texture struct {
	ID     gfx.Texture
	Type   Semantic
	Path   string // as written in the material
	Width  int
	Height int
}

// TextureCache deduplicates textures by their material path. One cache
// belongs to one Model; the model releases the textures it holds.
type TextureCache struct {
	byPath map[string]*Texture
	order  []*Texture
}

// NewTextureCache returns an empty cache.
func NewTextureCache() *TextureCache {
	return &TextureCache{byPath: make(map[string]*Texture)}
}

// Lookup returns the texture loaded for path, if any.
func (c *TextureCache) Lookup(path string) (*Texture, bool) {
	t, ok := c.byPath[path]
	return t, ok
}

// Insert records t under its path. A path already present keeps its
// first texture.
func (c *TextureCache) Insert(t *Texture) {
	if _, ok := c.byPath[t.Path]; ok {
		return
	}
	c.byPath[t.Path] = t
	c.order = append(c.order, t)
}

// Len returns the number of distinct textures.
func (c *TextureCache) Len() int { return len(c.order) }

// Textures returns the cached textures in insertion order.
func (c *TextureCache) Textures() []*Texture {
	out := make([]*Texture, len(c.order))
	copy(out, c.order)
	return out
}

// Release deletes every cached texture from dev and empties the cache.
func (c *TextureCache) Release(dev gfx.Device) {
	for _, t := range c.order {
		dev.DeleteTexture(t.ID)
	}
	c.byPath = make(map[string]*Texture)
	c.order = nil
}
