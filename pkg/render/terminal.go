package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw converts the framebuffer to terminal cells and draws them on the
// screen. Each cell is an upper half block whose foreground is the top
// pixel and background the bottom pixel, so the framebuffer height should
// be twice the number of rows in area.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X; col++ {
			x := col - area.Min.X
			if x >= fb.Width {
				break
			}

			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.GetPixel(x, topY)),
					Bg: cellColor(fb.GetPixel(x, botY)),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// DrawText writes s on a single row starting at (x, y), one cell per rune.
// Used for status overlays on top of a drawn framebuffer.
func DrawText(scr uv.Screen, x, y int, s string, fg color.Color) {
	for i, r := range []rune(s) {
		scr.SetCell(x+i, y, &uv.Cell{
			Content: string(r),
			Width:   1,
			Style:   uv.Style{Fg: fg},
		})
	}
}

// cellColor converts a packed pixel to a terminal color. Transparent
// pixels leave the cell uncolored.
func cellColor(argb uint32) color.Color {
	c := Unpack(argb)
	if c.A == 0 {
		return nil
	}
	return c
}
