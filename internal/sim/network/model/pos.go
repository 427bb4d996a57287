package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Face is one of the six block faces. FaceNone marks an unset face.
type Face int8

const (
	FaceNone Face = iota - 1
	FaceDown
	FaceUp
	FaceNorth
	FaceSouth
	FaceWest
	FaceEast
)

// Faces lists the six faces in neighbour enumeration order.
var Faces = [6]Face{FaceDown, FaceUp, FaceNorth, FaceSouth, FaceWest, FaceEast}

var faceNames = [6]string{"down", "up", "north", "south", "west", "east"}

var faceOffsets = [6][3]int{
	{0, -1, 0},
	{0, 1, 0},
	{0, 0, -1},
	{0, 0, 1},
	{-1, 0, 0},
	{1, 0, 0},
}

func (f Face) Valid() bool { return f >= FaceDown && f <= FaceEast }

func (f Face) String() string {
	if !f.Valid() {
		return "none"
	}
	return faceNames[f]
}

func (f Face) Opposite() Face {
	switch f {
	case FaceDown:
		return FaceUp
	case FaceUp:
		return FaceDown
	case FaceNorth:
		return FaceSouth
	case FaceSouth:
		return FaceNorth
	case FaceWest:
		return FaceEast
	case FaceEast:
		return FaceWest
	}
	return FaceNone
}

// ParseFace resolves a face by its lower-case name.
func ParseFace(name string) (Face, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range faceNames {
		if n == name {
			return Face(i), true
		}
	}
	return FaceNone, false
}

// DimPos is a block position inside one dimension.
type DimPos struct {
	Dim string `json:"dim"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Z   int    `json:"z"`
}

func (p DimPos) Offset(f Face) DimPos {
	if !f.Valid() {
		return p
	}
	d := faceOffsets[f]
	return DimPos{Dim: p.Dim, X: p.X + d[0], Y: p.Y + d[1], Z: p.Z + d[2]}
}

func (p DimPos) Neighbours() [6]DimPos {
	var out [6]DimPos
	for i, f := range Faces {
		out[i] = p.Offset(f)
	}
	return out
}

// Less orders positions by dimension, then x, y, z.
func (p DimPos) Less(o DimPos) bool {
	if p.Dim != o.Dim {
		return p.Dim < o.Dim
	}
	if p.X != o.X {
		return p.X < o.X
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.Z < o.Z
}

func (p DimPos) String() string {
	return fmt.Sprintf("%s@%d,%d,%d", p.Dim, p.X, p.Y, p.Z)
}

// ParseDimPos is the inverse of DimPos.String.
func ParseDimPos(s string) (DimPos, bool) {
	parts := strings.SplitN(s, "@", 2)
	if len(parts) != 2 || parts[0] == "" {
		return DimPos{}, false
	}
	coord := strings.Split(parts[1], ",")
	if len(coord) != 3 {
		return DimPos{}, false
	}
	x, err1 := strconv.Atoi(coord[0])
	y, err2 := strconv.Atoi(coord[1])
	z, err3 := strconv.Atoi(coord[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return DimPos{}, false
	}
	return DimPos{Dim: parts[0], X: x, Y: y, Z: z}, true
}

// Direction constrains which network operations reach a link.
type Direction uint8

const (
	DirBoth Direction = iota
	DirIn
	DirOut
)

func (d Direction) String() string {
	switch d {
	case DirIn:
		return "IN"
	case DirOut:
		return "OUT"
	}
	return "BOTH"
}

// ParseDirection falls back to BOTH for unknown names.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "IN":
		return DirIn, true
	case "OUT":
		return DirOut, true
	case "BOTH":
		return DirBoth, true
	}
	return DirBoth, false
}

// AllowsLinkTransfer is the link-level guard: IN links neither take inserts
// nor serve extracts.
func (d Direction) AllowsLinkTransfer() bool { return d != DirIn }

// AcceptsInsert reports whether the network dispatches inserts to the link.
func (d Direction) AcceptsInsert() bool { return d == DirOut || d == DirBoth }

// AcceptsExtract reports whether the network dispatches extracts to the link.
func (d Direction) AcceptsExtract() bool { return d == DirBoth }
