// Command nea is the process entry point: window creation, the event pump,
// and the per-frame wiring of Context -> Display -> Frames -> World ->
// scene.Loader -> raytracer.Driver -> ui.Painter. The window is fixed-size
// and non-resizable.
package main

import (
	"os"
	"time"
	"unsafe"

	"github.com/fahimhuh/nea/internal/config"
	"github.com/fahimhuh/nea/internal/display"
	"github.com/fahimhuh/nea/internal/raytracer"
	"github.com/fahimhuh/nea/internal/scene"
	"github.com/fahimhuh/nea/internal/ui"
	"github.com/fahimhuh/nea/internal/vkcore"
	shaders "github.com/fahimhuh/nea/shaders"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/mattn/go-colorable"
	imgui "github.com/inkyblackness/imgui-go/v4"
	"github.com/rs/zerolog"
	vk "github.com/vulkan-go/vulkan"
)

// glfwSurface adapts a *glfw.Window to vkcore.Surface.
type glfwSurface struct {
	window *glfw.Window
}

func (s glfwSurface) CreateWindowSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := s.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (s glfwSurface) RequiredInstanceExtensions() []string {
	return s.window.GetRequiredInstanceExtensions()
}

func main() {
	cfg := config.FromEnvironment()

	log := zerolog.New(zerolog.ConsoleWriter{Out: colorable.NewColorableStdout()}).
		With().Timestamp().Logger().Level(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("fatal error")
		os.Exit(1)
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	window, err := glfw.CreateWindow(cfg.WindowWidth, cfg.WindowHeight, "nea", nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	dpiX, _ := window.GetContentScale()

	ctx, surface, err := vkcore.NewContext(glfwSurface{window: window}, "nea", cfg.EnableValidation, log)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	dpy, err := display.New(ctx, surface, dpiX)
	if err != nil {
		return err
	}
	defer dpy.Destroy()

	frames, err := display.NewFrames(ctx, dpy, ctx.QueueFamily)
	if err != nil {
		return err
	}
	defer frames.Destroy()

	loader := scene.Global(log)
	driver, err := raytracer.New(ctx, shaders.RaytracerCompute, display.ImageCount, loader)
	if err != nil {
		return err
	}
	defer driver.Destroy()

	painter, err := ui.New(ctx, shaders.UIVertex, shaders.UIFragment, display.ImageCount, dpy.Format)
	if err != nil {
		return err
	}
	defer painter.Destroy()

	imguiCtx := imgui.CreateContext(nil)
	defer imguiCtx.Destroy()
	io := imgui.CurrentIO()
	io.SetDisplaySize(imgui.Vec2{X: float32(cfg.WindowWidth), Y: float32(cfg.WindowHeight)})

	fonts := io.Fonts()
	fontPixels, fontWidth, fontHeight := fonts.TextureDataRGBA32()
	const fontTextureID = imgui.TextureID(1)
	fontRGBA := unsafe.Slice((*byte)(fontPixels), fontWidth*fontHeight*4)
	if err := painter.UploadTextureDelta(fontTextureID, fontWidth, fontHeight, fontRGBA, 0, 0); err != nil {
		return err
	}
	fonts.SetTextureID(fontTextureID)

	world := scene.NewWorld()

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyO && action == glfw.Press {
			loader.RequestLoad()
		}
	})

	lastCursorX, lastCursorY := window.GetCursorPos()

	start := time.Now()
	lastFrame := start

	for !window.ShouldClose() {
		glfw.PollEvents()

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now

		cursorX, cursorY := window.GetCursorPos()
		deltaX := cursorX - lastCursorX
		deltaY := cursorY - lastCursorY
		lastCursorX, lastCursorY = cursorX, cursorY

		world.Update(pollInputs(window, float32(dt), float32(deltaX), float32(deltaY)))

		ref, err := frames.Next()
		if err != nil {
			return err
		}

		cmds, err := ref.AllocateCommandList()
		if err != nil {
			return err
		}
		if err := cmds.Begin(); err != nil {
			return err
		}

		ran, err := driver.Dispatch(cmds, ref.Index(), ref.ImageView(), ref.ImageHandle(), world,
			vk.Extent2D{Width: uint32(cfg.WindowWidth), Height: uint32(cfg.WindowHeight)}, float32(now.Sub(start).Seconds()))
		if err != nil {
			return err
		}

		loadOp := vk.AttachmentLoadOpClear
		if ran {
			loadOp = vk.AttachmentLoadOpLoad
		}

		imgui.NewFrame()
		imgui.Render()
		drawData := imgui.CurrentDrawData()
		painter.Draw(cmds, ref.Index(), ref.ImageView(), drawData,
			float32(cfg.WindowWidth), float32(cfg.WindowHeight), dpiX, loadOp,
			vk.ClearValue{})

		if err := cmds.End(); err != nil {
			return err
		}
		if err := ref.Submit([]*vkcore.CommandList{cmds}); err != nil {
			return err
		}
	}

	return ctx.WaitIdle()
}

func pollInputs(window *glfw.Window, dt, mouseDeltaX, mouseDeltaY float32) scene.Inputs {
	return scene.Inputs{
		Forward:      window.GetKey(glfw.KeyW) == glfw.Press,
		Back:         window.GetKey(glfw.KeyS) == glfw.Press,
		Left:         window.GetKey(glfw.KeyA) == glfw.Press,
		Right:        window.GetKey(glfw.KeyD) == glfw.Press,
		Up:           window.GetKey(glfw.KeySpace) == glfw.Press,
		Down:         window.GetKey(glfw.KeyLeftShift) == glfw.Press,
		MouseDeltaX:  mouseDeltaX,
		MouseDeltaY:  mouseDeltaY,
		DeltaSeconds: dt,
	}
}
