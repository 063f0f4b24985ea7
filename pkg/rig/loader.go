package rig

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/internal/httpc"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// Loader produces a skeleton from a location. Implementations must honor
// ctx cancellation.
type Loader interface {
	Load(ctx context.Context, location string) (*Skeleton, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, location string) (*Skeleton, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, location string) (*Skeleton, error) {
	return f(ctx, location)
}

// FileLoader reads hierarchy documents (.json), glTF (.gltf) and binary
// glTF (.glb) from disk or http(s) URLs. Only the node hierarchy is read;
// meshes and animations are ignored.
type FileLoader struct{}

// Load implements Loader.
func (FileLoader) Load(ctx context.Context, location string) (*Skeleton, error) {
	data, err := read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	var s *Skeleton
	switch ext := strings.ToLower(path.Ext(stripQuery(location))); ext {
	case ".glb":
		s, err = parseGLB(data)
	case ".gltf":
		s, err = parseGLTF(data)
	case ".json", "":
		s, err = ParseDocument(data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, location, err)
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, location, ErrEmptyHierarchy)
	}
	s.Source = location
	return s, nil
}

func read(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return httpc.Fetch(ctx, location)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(location)
}

func stripQuery(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" {
		return u.Path
	}
	return location
}

// ============================================================
// Hierarchy document
// ============================================================

// Document is the JSON hierarchy format.
type Document struct {
	Name  string    `json:"name"`
	Bones []NodeDoc `json:"bones"`
}

// NodeDoc is one node of a Document.
type NodeDoc struct {
	Name     string        `json:"name"`
	Position *r3.Vec       `json:"position,omitempty"`
	Rotation *spatial.Quat `json:"rotation,omitempty"`
	Length   float64       `json:"length,omitempty"`
	Children []NodeDoc     `json:"children,omitempty"`
}

// ParseDocument decodes a hierarchy document.
func ParseDocument(data []byte) (*Skeleton, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode hierarchy: %w", err)
	}
	roots := make([]Node, 0, len(doc.Bones))
	for i := range doc.Bones {
		roots = append(roots, fromDoc(&doc.Bones[i]))
	}
	return New(doc.Name, roots...), nil
}

func fromDoc(d *NodeDoc) *Bone {
	var pos r3.Vec
	if d.Position != nil {
		pos = *d.Position
	}
	rot := spatial.Identity()
	if d.Rotation != nil {
		rot = d.Rotation.Normalize()
	}
	b := NewBoneAt(d.Name, pos, rot).WithLength(d.Length)
	for i := range d.Children {
		b.Add(fromDoc(&d.Children[i]))
	}
	return b
}

// MarshalDocument encodes a skeleton of Bones as a hierarchy document.
func MarshalDocument(s *Skeleton) ([]byte, error) {
	doc := Document{Name: s.Name}
	for _, r := range s.Roots() {
		doc.Bones = append(doc.Bones, toDoc(r))
	}
	return json.MarshalIndent(doc, "", "  ")
}

func toDoc(n Node) NodeDoc {
	pos, rot := n.Position(), n.Rotation()
	d := NodeDoc{Name: n.Name(), Position: &pos, Rotation: &rot}
	if l, ok := n.(Lengther); ok {
		d.Length = l.RestLength()
	}
	for _, c := range n.Children() {
		d.Children = append(d.Children, toDoc(c))
	}
	return d
}

// ============================================================
// glTF
// ============================================================

type gltfNode struct {
	Name        string      `json:"name"`
	Children    []int       `json:"children"`
	Rotation    *[4]float64 `json:"rotation"`
	Translation *[3]float64 `json:"translation"`
	Scale       *[3]float64 `json:"scale"`
	Mesh        *int        `json:"mesh"`
}

type gltfScene struct {
	Nodes []int `json:"nodes"`
}

type gltfSkin struct {
	Joints []int `json:"joints"`
}

type gltfDoc struct {
	Scene  *int        `json:"scene"`
	Scenes []gltfScene `json:"scenes"`
	Nodes  []gltfNode  `json:"nodes"`
	Skins  []gltfSkin  `json:"skins"`
}

// bones returns the node indices that belong to the skeleton. With skins
// that is every joint plus its ancestors; without skins every node except
// mesh leaves.
func (d *gltfDoc) bones() map[int]bool {
	keep := make(map[int]bool, len(d.Nodes))
	if len(d.Skins) == 0 {
		for i, n := range d.Nodes {
			if n.Mesh == nil || len(n.Children) > 0 {
				keep[i] = true
			}
		}
		return keep
	}

	parent := make(map[int]int, len(d.Nodes))
	for i, n := range d.Nodes {
		for _, c := range n.Children {
			parent[c] = i
		}
	}
	for _, skin := range d.Skins {
		for _, j := range skin.Joints {
			for i := j; i >= 0 && i < len(d.Nodes) && !keep[i]; {
				keep[i] = true
				p, ok := parent[i]
				if !ok {
					break
				}
				i = p
			}
		}
	}
	return keep
}

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A // "JSON"
)

func parseGLB(data []byte) (*Skeleton, error) {
	if len(data) < 20 {
		return nil, fmt.Errorf("glb too short: %d bytes", len(data))
	}
	var header struct {
		Magic, Version, Length uint32
		ChunkLength, ChunkType uint32
	}
	if err := binary.Read(bytes.NewReader(data[:20]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("glb header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, fmt.Errorf("glb: bad magic %#x", header.Magic)
	}
	if header.ChunkType != glbChunkJSON {
		return nil, fmt.Errorf("glb: first chunk is %#x, want JSON", header.ChunkType)
	}
	end := 20 + int(header.ChunkLength)
	if end > len(data) {
		return nil, fmt.Errorf("glb: JSON chunk overruns file")
	}
	return parseGLTF(data[20:end])
}

func parseGLTF(data []byte) (*Skeleton, error) {
	var doc gltfDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}

	var rootIdx []int
	switch {
	case len(doc.Scenes) > 0:
		scene := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			scene = *doc.Scene
		}
		rootIdx = doc.Scenes[scene].Nodes
	default:
		// No scenes: every node that is nobody's child is a root.
		child := make(map[int]bool)
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				child[c] = true
			}
		}
		for i := range doc.Nodes {
			if !child[i] {
				rootIdx = append(rootIdx, i)
			}
		}
	}

	keep := doc.bones()
	visited := make(map[int]bool)
	var build func(i int) *Bone
	build = func(i int) *Bone {
		if i < 0 || i >= len(doc.Nodes) || visited[i] || !keep[i] {
			return nil
		}
		visited[i] = true
		n := doc.Nodes[i]

		var pos r3.Vec
		if t := n.Translation; t != nil {
			pos = r3.Vec{X: t[0], Y: t[1], Z: t[2]}
		}
		rot := spatial.Identity()
		if r := n.Rotation; r != nil {
			rot = spatial.Quat{Imag: r[0], Jmag: r[1], Kmag: r[2], Real: r[3]}.Normalize()
		}
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		b := NewBoneAt(name, pos, rot)
		if sc := n.Scale; sc != nil {
			b.WithScale(r3.Vec{X: sc[0], Y: sc[1], Z: sc[2]})
		}
		for _, c := range n.Children {
			if cb := build(c); cb != nil {
				b.Add(cb)
			}
		}
		return b
	}

	var roots []Node
	for _, i := range rootIdx {
		if b := build(i); b != nil {
			roots = append(roots, b)
		}
	}
	return New("gltf", roots...), nil
}
