package core

import (
	"math"

	"github.com/signalsfoundry/orrery/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCellLength is the grid cell edge used when a manifest sets none.
const DefaultCellLength = 10_000.0

// GridTransform splits an absolute position into a grid cell and an offset
// inside that cell.
type GridTransform interface {
	TranslationToGrid(pos r3.Vec) (model.GridCell, r3.Vec)
}

// ReferenceFrame is a floating-origin grid of cubes CellLength metres wide.
// Offsets lie within half a cell of the cell centre.
type ReferenceFrame struct {
	CellLength float64
}

func (f ReferenceFrame) cellLength() float64 {
	if f.CellLength > 0 {
		return f.CellLength
	}
	return DefaultCellLength
}

func (f ReferenceFrame) TranslationToGrid(pos r3.Vec) (model.GridCell, r3.Vec) {
	l := f.cellLength()
	cx, cy, cz := math.Round(pos.X/l), math.Round(pos.Y/l), math.Round(pos.Z/l)
	cell := model.GridCell{X: int64(cx), Y: int64(cy), Z: int64(cz)}
	return cell, r3.Vec{X: pos.X - cx*l, Y: pos.Y - cy*l, Z: pos.Z - cz*l}
}

// GridToTranslation is the inverse of TranslationToGrid.
func (f ReferenceFrame) GridToTranslation(cell model.GridCell, offset r3.Vec) r3.Vec {
	l := f.cellLength()
	return r3.Vec{
		X: float64(cell.X)*l + offset.X,
		Y: float64(cell.Y)*l + offset.Y,
		Z: float64(cell.Z)*l + offset.Z,
	}
}
