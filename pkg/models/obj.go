package models

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

var (
	// ErrMalformedOBJ is returned for OBJ statements that cannot be parsed.
	ErrMalformedOBJ = errors.New("malformed OBJ")

	// ErrAttributeMismatch is returned when an OBJ file has texture
	// coordinates or normals, but not one per position.
	ErrAttributeMismatch = errors.New("vertex attribute count mismatch")
)

// LoadOBJ loads a Wavefront OBJ file.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	mesh, err := ParseOBJ(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	render.Logger().Info("mesh loaded", "path", path,
		"vertices", mesh.VertexCount(), "triangles", mesh.TriangleCount())
	return mesh, nil
}

// ParseOBJ reads OBJ text into a mesh.
//
// Vertices are built by zipping the i-th position, texture coordinate and
// normal, so a face corner contributes only its position index. A file
// without vt lines gets zero texture coordinates and one without vn lines
// gets smooth normals; partial attribute lists are an error. Texture V is
// flipped to 1-v so that v=0 is the top image row. Polygons are fan
// triangulated and negative indices count back from the latest position.
func ParseOBJ(r io.Reader, name string) (*Mesh, error) {
	var (
		positions []math3d.Vec3
		uvs       []math3d.Vec2
		normals   []math3d.Vec3
		indices   []uint32
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		var err error
		switch fields[0] {
		case "v":
			var v [3]float32
			if v, err = parseFloats3(fields[1:], 3); err == nil {
				positions = append(positions, math3d.V3(v[0], v[1], v[2]))
			}
		case "vt":
			var v [3]float32
			if v, err = parseFloats3(fields[1:], 2); err == nil {
				uvs = append(uvs, math3d.V2(v[0], 1-v[1]))
			}
		case "vn":
			var v [3]float32
			if v, err = parseFloats3(fields[1:], 3); err == nil {
				normals = append(normals, math3d.V3(v[0], v[1], v[2]))
			}
		case "f":
			indices, err = appendFace(indices, fields[1:], len(positions))
		case "o":
			if len(fields) > 1 {
				name = fields[1]
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	if len(uvs) > 0 && len(uvs) != len(positions) {
		return nil, fmt.Errorf("%d texture coordinates for %d positions: %w", len(uvs), len(positions), ErrAttributeMismatch)
	}
	if len(normals) > 0 && len(normals) != len(positions) {
		return nil, fmt.Errorf("%d normals for %d positions: %w", len(normals), len(positions), ErrAttributeMismatch)
	}

	mesh := NewMesh(name)
	mesh.Vertices = make([]Vertex, len(positions))
	for i, p := range positions {
		v := Vertex{Position: p}
		if len(uvs) > 0 {
			v.TexCoord = uvs[i]
		}
		if len(normals) > 0 {
			v.Normal = normals[i]
		}
		mesh.Vertices[i] = v
	}
	mesh.Indices = indices

	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	if len(normals) == 0 {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()
	return mesh, nil
}

// parseFloats3 parses the first n (at most 3) fields. Extra fields, such
// as a w coordinate, are ignored.
func parseFloats3(fields []string, n int) ([3]float32, error) {
	var out [3]float32
	if len(fields) < n {
		return out, fmt.Errorf("want %d values, got %d: %w", n, len(fields), ErrMalformedOBJ)
	}
	for i := range n {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return out, fmt.Errorf("%q: %w", fields[i], ErrMalformedOBJ)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// appendFace fan-triangulates one face statement. Each corner is
// "v", "v/vt", "v//vn" or "v/vt/vn"; only v is used.
func appendFace(indices []uint32, corners []string, numPositions int) ([]uint32, error) {
	if len(corners) < 3 {
		return indices, fmt.Errorf("face with %d corners: %w", len(corners), ErrMalformedOBJ)
	}

	resolved := make([]uint32, len(corners))
	for i, c := range corners {
		pos, _, _ := strings.Cut(c, "/")
		idx, err := strconv.Atoi(pos)
		if err != nil || idx == 0 {
			return indices, fmt.Errorf("face index %q: %w", c, ErrMalformedOBJ)
		}
		if idx < 0 {
			idx += numPositions
		} else {
			idx--
		}
		if idx < 0 {
			return indices, fmt.Errorf("face index %q before first position: %w", c, ErrIndexOutOfRange)
		}
		if idx >= numPositions || uint64(idx) > math.MaxUint32 {
			return indices, fmt.Errorf("face index %q of %d positions: %w", c, numPositions, ErrIndexOutOfRange)
		}
		resolved[i] = uint32(idx)
	}

	for i := 1; i+1 < len(resolved); i++ {
		indices = append(indices, resolved[0], resolved[i], resolved[i+1])
	}
	return indices, nil
}
