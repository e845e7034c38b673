package tui

import "strings"

// Braille dot positions (col, row) → bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

// Canvas is a dot grid backed by braille cells, 2 dots wide and 4 tall each.
type Canvas struct {
	cols, rows int
	cells      []uint8
}

// NewCanvas returns a canvas of cols by rows terminal cells.
func NewCanvas(cols, rows int) *Canvas {
	cols, rows = max(cols, 1), max(rows, 1)
	return &Canvas{cols: cols, rows: rows, cells: make([]uint8, cols*rows)}
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (width, height int) { return c.cols * 2, c.rows * 4 }

// Cells returns the canvas size in terminal cells.
func (c *Canvas) Cells() (cols, rows int) { return c.cols, c.rows }

func (c *Canvas) Clear() { clear(c.cells) }

// Set lights the dot at (x, y). Points outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return
	}
	c.cells[(y/4)*c.cols+x/2] |= 1 << brailleBits[x%2][y%4]
}

// Line draws a straight segment between two dots.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	err := dx + dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Circle draws a circle outline of radius r dots.
func (c *Canvas) Circle(cx, cy, r int) {
	if r <= 0 {
		c.Set(cx, cy)
		return
	}
	x, y, d := r, 0, 1-r
	for x >= y {
		for _, p := range [8][2]int{{x, y}, {y, x}, {-y, x}, {-x, y}, {-x, -y}, {-y, -x}, {y, -x}, {x, -y}} {
			c.Set(cx+p[0], cy+p[1])
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

// Cell returns the dot pattern of one terminal cell.
func (c *Canvas) Cell(col, row int) uint8 { return c.cells[row*c.cols+col] }

// Rune returns the braille character for one terminal cell.
func (c *Canvas) Rune(col, row int) rune { return rune(0x2800 + int(c.Cell(col, row))) }

func (c *Canvas) String() string {
	var sb strings.Builder
	for row := range c.rows {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := range c.cols {
			sb.WriteRune(c.Rune(col, row))
		}
	}
	return sb.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
