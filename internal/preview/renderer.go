package preview

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// renderer blits an RGBA8888 frame onto a single textured quad, scaled to
// preserve the frame's aspect ratio inside the current window (letterbox
// or pillarbox as needed). It is the 2D descendant of the teacher's GLB
// mesh renderer: the vertex/fragment shader plumbing and texture upload
// path are kept, the mesh loading, skinning, and animation machinery are
// not — there is no model to animate, only a stream of frames to display.
type renderer struct {
	shaderProgram uint32
	vao, vbo      uint32
	textureID     uint32
	textureWidth  int32
	textureHeight int32

	scaleLoc   int32
	textureLoc int32
}

const previewVertexShaderSource = `
#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aTexCoord;

out vec2 TexCoord;

uniform vec2 scale;

void main() {
    TexCoord = aTexCoord;
    gl_Position = vec4(aPos * scale, 0.0, 1.0);
}
` + "\x00"

const previewFragmentShaderSource = `
#version 410 core
out vec4 FragColor;

in vec2 TexCoord;

uniform sampler2D frameTexture;

void main() {
    FragColor = texture(frameTexture, TexCoord);
}
` + "\x00"

// quadVertices is a unit -1..1 quad with its texture coordinates;
// per-frame aspect correction is applied via the scale uniform rather
// than re-uploading vertex data every tick.
var quadVertices = []float32{
	// pos        // texcoord
	-1, -1, 0, 1,
	1, -1, 1, 1,
	1, 1, 1, 0,
	-1, -1, 0, 1,
	1, 1, 1, 0,
	-1, 1, 0, 0,
}

func newRenderer() (*renderer, error) {
	r := &renderer{}

	vertexShader, err := compileShader(previewVertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("preview vertex shader: %w", err)
	}
	fragmentShader, err := compileShader(previewFragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("preview fragment shader: %w", err)
	}

	r.shaderProgram = gl.CreateProgram()
	gl.AttachShader(r.shaderProgram, vertexShader)
	gl.AttachShader(r.shaderProgram, fragmentShader)
	gl.LinkProgram(r.shaderProgram)

	var status int32
	gl.GetProgramiv(r.shaderProgram, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(r.shaderProgram, gl.INFO_LOG_LENGTH, &logLength)
		log := make([]byte, logLength)
		gl.GetProgramInfoLog(r.shaderProgram, logLength, nil, &log[0])
		return nil, fmt.Errorf("preview program link: %s", string(log))
	}
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	r.scaleLoc = gl.GetUniformLocation(r.shaderProgram, gl.Str("scale\x00"))
	r.textureLoc = gl.GetUniformLocation(r.shaderProgram, gl.Str("frameTexture\x00"))

	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(2*4))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	gl.GenTextures(1, &r.textureID)
	gl.BindTexture(gl.TEXTURE_2D, r.textureID)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	return r, nil
}

// updateTexture uploads an RGBA8888 frame, resizing the texture storage
// only when dimensions change.
func (r *renderer) updateTexture(data []byte, width, height int32) {
	if len(data) == 0 {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, r.textureID)
	if r.textureWidth != width || r.textureHeight != height {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		r.textureWidth = width
		r.textureHeight = height
	}
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, width, height, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&data[0]))
}

// render draws the current texture into the window, preserving the
// frame's aspect ratio (§9 "resolution mismatch" leaves scaling to the
// viewer; the local preview window is one such viewer).
func (r *renderer) render(windowWidth, windowHeight int32) {
	gl.Viewport(0, 0, windowWidth, windowHeight)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.UseProgram(r.shaderProgram)
	scale := letterboxScale(r.textureWidth, r.textureHeight, windowWidth, windowHeight)
	gl.Uniform2fv(r.scaleLoc, 1, &scale[0])
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.textureID)
	gl.Uniform1i(r.textureLoc, 0)

	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

// letterboxScale returns the per-axis scale factor that fits a
// frameW x frameH image into a windowW x windowH viewport without
// distorting its aspect ratio.
func letterboxScale(frameW, frameH, windowW, windowH int32) mgl32.Vec2 {
	if frameW <= 0 || frameH <= 0 || windowW <= 0 || windowH <= 0 {
		return mgl32.Vec2{1, 1}
	}
	frameAspect := float32(frameW) / float32(frameH)
	windowAspect := float32(windowW) / float32(windowH)
	if frameAspect > windowAspect {
		return mgl32.Vec2{1, windowAspect / frameAspect}
	}
	return mgl32.Vec2{frameAspect / windowAspect, 1}
}

func (r *renderer) destroy() {
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteTextures(1, &r.textureID)
	gl.DeleteProgram(r.shaderProgram)
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := make([]byte, logLength)
		gl.GetShaderInfoLog(shader, logLength, nil, &log[0])
		return 0, fmt.Errorf("compile preview shader: %s", string(log))
	}
	return shader, nil
}
