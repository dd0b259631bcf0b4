package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/viz"
)

const (
	canvasWidth  = 60
	canvasHeight = 16
)

// renderOscillator draws the oscillator model's single prismatic mass as
// a block sliding along a track, with a braille trail of recent
// positions. Adapted from
// _examples/san-kum-dynsim/internal/tui/live.go's drawSpring, redrawn
// against viz.Canvas's sub-pixel braille grid instead of a flat rune
// grid.
func renderOscillator(x dynamo.State, trail []float64) string {
	c := viz.NewCanvas(canvasWidth, canvasHeight)
	w, h := canvasWidth*2, canvasHeight*4
	cy := h / 2

	for sx := 0; sx < w; sx++ {
		c.Set(sx, cy)
	}

	pos := x.Q[0]
	scale := float64(w) / 6.0
	center := w / 2
	mx := center + int(pos*scale)

	for i, p := range trail {
		tx := center + int(p*scale)
		fade := i < len(trail)/2
		if !fade {
			c.Set(tx, cy-1)
		}
	}

	for dy := -3; dy <= 3; dy++ {
		c.DrawLine(mx-3, cy+dy, mx+3, cy+dy)
	}

	var b strings.Builder
	b.WriteString(c.String())
	b.WriteString(fmt.Sprintf("q=%.3f  v=%.3f\n", x.Q[0], x.V[0]))
	return b.String()
}

// renderTetheredPoints draws the two Translation3 point masses of the
// tethered_points model projected onto their XY plane, joined by the
// distance constraint's line.
func renderTetheredPoints(x dynamo.State) string {
	c := viz.NewCanvas(canvasWidth, canvasHeight)
	w, h := canvasWidth*2, canvasHeight*4

	// x.Q is [Ax, Ay, Az, Bx, By, Bz] for the two Translation3 joints.
	ax, ay := x.Q[0], x.Q[1]
	bx, by := x.Q[3], x.Q[4]

	scale := float64(w) / 8.0
	cx, cy := w/2, h/2

	pax := cx + int(ax*scale)
	pay := cy - int(ay*scale)
	pbx := cx + int(bx*scale)
	pby := cy - int(by*scale)

	c.DrawLine(pax, pay, pbx, pby)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			c.Set(pax+dx, pay+dy)
			c.Set(pbx+dx, pby+dy)
		}
	}

	dist := distance3(x.Q[0:3], x.Q[3:6])
	var b strings.Builder
	b.WriteString(c.String())
	b.WriteString(fmt.Sprintf("|AB|=%.4f\n", dist))
	return b.String()
}

func distance3(a, b []float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// renderState dispatches to the model-specific renderer, falling back
// to a plain field dump for any model this package has no bespoke view
// for.
func renderState(modelName string, x dynamo.State, trail []float64) string {
	switch modelName {
	case "oscillator":
		return renderOscillator(x, trail)
	case "tethered_points":
		return renderTetheredPoints(x)
	default:
		var b strings.Builder
		b.WriteString("q: ")
		for _, v := range x.Q {
			fmt.Fprintf(&b, "%.3f ", v)
		}
		b.WriteString("\nv: ")
		for _, v := range x.V {
			fmt.Fprintf(&b, "%.3f ", v)
		}
		b.WriteString("\n")
		return b.String()
	}
}
