package streamer

// testPattern generates the diagnostic RGBA8888 frame used when neither
// a gralloc-presented buffer nor the fallback framebuffer device is
// available (§4.3 priority 3): a border and a crosshair whose color
// moves to the next of four colors once per second (every DefaultFPS
// ticks), and a white animated indicator. Grounded on
// server/src/framebuffer.rs in original_source/, kept with its full
// detail per §12 rather than simplified to a flat fill — it is the only
// visible proof of life when both real sources are absent.
func testPattern(buf []byte, width, height int, tick int) {
	colors := [][4]byte{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 0, 255},
	}
	color := colors[(tick/DefaultFPS)%len(colors)]

	set := func(x, y int, c [4]byte) {
		if x < 0 || x >= width || y < 0 || y >= height {
			return
		}
		off := (y*width + x) * 4
		buf[off] = c[0]
		buf[off+1] = c[1]
		buf[off+2] = c[2]
		buf[off+3] = c[3]
	}

	// Background.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			set(x, y, [4]byte{32, 32, 32, 255})
		}
	}

	// Border.
	for x := 0; x < width; x++ {
		set(x, 0, color)
		set(x, height-1, color)
	}
	for y := 0; y < height; y++ {
		set(0, y, color)
		set(width-1, y, color)
	}

	// Crosshair.
	cx, cy := width/2, height/2
	for x := 0; x < width; x++ {
		set(x, cy, color)
	}
	for y := 0; y < height; y++ {
		set(cx, y, color)
	}

	// Animated indicator: a small block that sweeps along the top edge,
	// one step per tick, so a static screenshot can't be mistaken for a
	// live stream.
	indicatorWidth := 8
	if indicatorWidth > width {
		indicatorWidth = width
	}
	sweepRange := width - indicatorWidth
	var indicatorX int
	if sweepRange > 0 {
		indicatorX = tick % sweepRange
	}
	for dx := 0; dx < indicatorWidth; dx++ {
		for dy := 0; dy < 4 && dy < height; dy++ {
			set(indicatorX+dx, dy, [4]byte{255, 255, 255, 255})
		}
	}
}
