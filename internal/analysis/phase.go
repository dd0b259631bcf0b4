package analysis

import (
	"math"
	"strings"

	"github.com/rigidkernel/simkernel/internal/dynamo"
)

// PhasePortrait2D holds data for a 2D phase space plot.
type PhasePortrait2D struct {
	XField, YField string
	Points         []struct{ X, Y float64 }
}

// GeneratePhasePortrait projects a completed run's trajectory onto two
// scalar fields selected by extract, one point per recorded step.
//
// Adapted from
// _examples/san-kum-dynsim/internal/analysis/phase.go, which re-ran an
// integrator internally; this version works post-hoc off a dynamo.Result
// the driver already produced, since dynamo.State no longer has a fixed
// flat index a caller could name generically across models.
func GeneratePhasePortrait(result *dynamo.Result, xField, yField string, extract func(dynamo.State) (x, y float64)) *PhasePortrait2D {
	portrait := &PhasePortrait2D{
		XField: xField,
		YField: yField,
		Points: make([]struct{ X, Y float64 }, 0, len(result.States)),
	}
	for _, s := range result.States {
		x, y := extract(s)
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{X: x, Y: y})
	}
	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// PoincareSection records points sampled when a scalar field crosses a
// threshold on the way up.
type PoincareSection struct {
	Points []struct{ X, Y float64 }
}

// GeneratePoincareSection walks a run's trajectory looking for
// positive-going crossings of threshold in the scalar returned by cross,
// recording the (x, y) projection given by extract at each crossing.
func GeneratePoincareSection(result *dynamo.Result, threshold float64, cross func(dynamo.State) float64, extract func(dynamo.State) (x, y float64)) *PoincareSection {
	section := &PoincareSection{Points: make([]struct{ X, Y float64 }, 0)}
	if len(result.States) == 0 {
		return section
	}

	prevVal := cross(result.States[0])
	for i := 1; i < len(result.States); i++ {
		s := result.States[i]
		currVal := cross(s)

		if prevVal < threshold && currVal >= threshold {
			frac := (threshold - prevVal) / (currVal - prevVal)
			if math.IsNaN(frac) || math.IsInf(frac, 0) {
				frac = 0.5
			}
			x, y := extract(s)
			section.Points = append(section.Points, struct{ X, Y float64 }{X: x, Y: y})
		}

		prevVal = currVal
	}
	return section
}

// PoincareSectionToASCII converts section data to ASCII art.
func PoincareSectionToASCII(section *PoincareSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}
	portrait := &PhasePortrait2D{Points: section.Points}
	return PhasePortraitToASCII(portrait, width, height)
}
