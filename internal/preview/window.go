// Package preview implements the optional local operator window named in
// §2/§4.1 as one of the producers that can inject touch and key events:
// an SDL2/OpenGL window that blits the streamer's latest frame each tick
// and forwards mouse/keyboard input into the virtual touch and key
// devices. It is adapted from the teacher's SDL2 + OpenGL main loop,
// stripped of Wayland compositing and GLB mesh rendering.
package preview

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/rs/zerolog"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/twoyi/redroidhostd/internal/streamer"
	"github.com/twoyi/redroidhostd/internal/virtualinput"
)

func init() {
	// SDL2 and OpenGL require their calls to stay on one OS thread; Run is
	// expected to be launched on its own goroutine, so it locks that
	// goroutine rather than relying on main's init-time lock.
	runtime.LockOSThread()
}

// Config describes the preview window's initial geometry.
type Config struct {
	Width, Height int
	Title         string
}

// Window owns the SDL2 window, its GL context, and the frame renderer.
type Window struct {
	cfg Config

	touch  *virtualinput.Touch
	key    *virtualinput.Key
	latest *streamer.LatestFrame

	log zerolog.Logger
}

// New creates a preview window wired to the touch/key producers and the
// streamer's latest-frame cell.
func New(cfg Config, touch *virtualinput.Touch, key *virtualinput.Key, latest *streamer.LatestFrame, log zerolog.Logger) *Window {
	return &Window{
		cfg: cfg, touch: touch, key: key, latest: latest,
		log: log.With().Str("component", "preview").Logger(),
	}
}

// Run initializes SDL2/OpenGL, opens the window, and blocks in the event
// and render loop until the window is closed or stop is closed. It must
// be called from a dedicated goroutine, never concurrently with another
// Window's Run.
func (w *Window) Run(stop <-chan struct{}) error {
	runtime.LockOSThread()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("init sdl2: %w", err)
	}
	defer sdl.Quit()

	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)

	title := w.cfg.Title
	if title == "" {
		title = "redroidhostd preview"
	}
	window, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(w.cfg.Width), int32(w.cfg.Height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_OPENGL|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return fmt.Errorf("create sdl2 window: %w", err)
	}
	defer window.Destroy()

	glContext, err := window.GLCreateContext()
	if err != nil {
		return fmt.Errorf("create gl context: %w", err)
	}
	defer sdl.GLDeleteContext(glContext)

	if err := gl.Init(); err != nil {
		return fmt.Errorf("init opengl: %w", err)
	}
	gl.ClearColor(0, 0, 0, 1)

	r, err := newRenderer()
	if err != nil {
		return fmt.Errorf("create preview renderer: %w", err)
	}
	defer r.destroy()

	w.log.Info().Int("width", w.cfg.Width).Int("height", w.cfg.Height).Msg("preview window open")

	ticker := time.NewTicker(time.Second / time.Duration(streamer.DefaultFPS))
	defer ticker.Stop()

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			if w.handleEvent(event) {
				return nil
			}
		}

		select {
		case <-stop:
			return nil
		case <-ticker.C:
			if data, width, height, ok := w.latest.Get(); ok {
				r.updateTexture(data, int32(width), int32(height))
			}
			winW, winH := window.GetSize()
			r.render(winW, winH)
			window.GLSwap()
		}
	}
}

// handleEvent dispatches one SDL2 event into the virtual touch/key
// producers, returning true if the window should close.
func (w *Window) handleEvent(event sdl.Event) (quit bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.log.Info().Msg("preview window quit requested")
		return true

	case *sdl.MouseButtonEvent:
		if w.touch == nil {
			return false
		}
		action := virtualinput.ActionUp
		if e.Type == sdl.MOUSEBUTTONDOWN {
			action = virtualinput.ActionDown
		}
		w.touch.HandleAction(action, 0, int32(e.X), int32(e.Y), 100)

	case *sdl.MouseMotionEvent:
		if w.touch == nil {
			return false
		}
		if e.State != 0 {
			w.touch.HandleAction(virtualinput.ActionMove, 0, int32(e.X), int32(e.Y), 100)
		}

	case *sdl.KeyboardEvent:
		if w.key == nil {
			return false
		}
		keycode := sdlScancodeToEvdev(e.Keysym.Scancode)
		if keycode != 0 {
			w.key.Press(keycode, e.Type == sdl.KEYDOWN)
		}
	}
	return false
}
