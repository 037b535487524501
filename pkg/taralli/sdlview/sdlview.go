// Package sdlview applies the engine's projected render records to an
// SDL window. It is a thin platform adapter: all placement decisions are
// made by the engine's arc projection, and this package only rasterizes
// them. Item icons referenced by DisplayRef are SVG files rendered with
// oksvg into cached textures.
package sdlview

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/veandco/go-sdl2/ttf"

	"github.com/BrandonKowalski/taralli/pkg/taralli"
)

// Options configures the SDL view.
type Options struct {
	Title      string
	Width      int32 // 0 = current display mode
	Height     int32
	FontPath   string
	FontSize   int
	IconDir    string    // directory DisplayRef icon paths resolve against
	Background sdl.Color // solid clear color behind the arc
	Accent     sdl.Color // depth indicator and selection tint
	Borderless bool
}

// View owns the SDL window, renderer, font and icon textures.
type View struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	font     *ttf.Font
	icons    *textureCache
	opts     Options
	width    int32
	height   int32

	hasVSync        bool
	lastPresentTime uint64
}

// New initializes SDL and creates the view window.
func New(opts Options) (*View, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdlview: init: %w", err)
	}
	if err := ttf.Init(); err != nil {
		return nil, fmt.Errorf("sdlview: ttf init: %w", err)
	}

	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		mode, err := sdl.GetCurrentDisplayMode(0)
		if err != nil {
			return nil, fmt.Errorf("sdlview: display mode: %w", err)
		}
		width, height = mode.W, mode.H
	}

	var flags uint32
	if opts.Borderless {
		flags |= sdl.WINDOW_BORDERLESS
	}
	window, err := sdl.CreateWindow(opts.Title, 0, 0, width, height, flags)
	if err != nil {
		return nil, fmt.Errorf("sdlview: create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC|sdl.RENDERER_TARGETTEXTURE)
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("sdlview: create renderer: %w", err)
	}
	renderer.SetLogicalSize(width, height)

	info, err := renderer.GetInfo()
	vsync := err == nil && info.Flags&sdl.RENDERER_PRESENTVSYNC != 0

	fontSize := opts.FontSize
	if fontSize == 0 {
		fontSize = 22
	}
	var font *ttf.Font
	if opts.FontPath != "" {
		font, err = ttf.OpenFont(opts.FontPath, fontSize)
		if err != nil {
			renderer.Destroy()
			window.Destroy()
			return nil, fmt.Errorf("sdlview: open font: %w", err)
		}
	}

	return &View{
		window:   window,
		renderer: renderer,
		font:     font,
		icons:    newTextureCache(),
		opts:     opts,
		width:    width,
		height:   height,
		hasVSync: vsync,
	}, nil
}

// Draw renders one frame of engine output.
func (v *View) Draw(elements []taralli.RenderElement) {
	bg := v.opts.Background
	v.renderer.SetDrawColor(bg.R, bg.G, bg.B, 255)
	v.renderer.Clear()

	for _, el := range elements {
		switch el.Kind {
		case taralli.ElementDepthIndicator:
			v.drawDepthIndicator(el)
		case taralli.ElementPage:
			v.drawPage(el)
		default:
			v.drawArcElement(el)
		}
	}
}

// Present swaps the render buffer and enforces ~60fps frame timing
// when VSync is not available.
func (v *View) Present() {
	v.renderer.Present()
	if !v.hasVSync {
		now := sdl.GetTicks64()
		if elapsed := now - v.lastPresentTime; elapsed < 16 {
			sdl.Delay(uint32(16 - elapsed))
		}
		v.lastPresentTime = sdl.GetTicks64()
	}
}

// Close releases all SDL resources.
func (v *View) Close() {
	v.icons.Destroy()
	if v.font != nil {
		v.font.Close()
	}
	v.renderer.Destroy()
	v.window.Destroy()
	ttf.Quit()
	sdl.Quit()
}

// drawArcElement renders one item or breadcrumb at its projected
// placement. Engine Y is relative to the vertical center; X is the
// projected arc offset from the left edge.
func (v *View) drawArcElement(el taralli.RenderElement) {
	if el.Opacity <= 0 {
		return
	}

	size := int32(96 * el.Scale)
	if size < 1 {
		return
	}
	x := int32(el.X)
	y := v.height/2 + int32(el.Y) - size/2
	alpha := uint8(el.Opacity * 255)

	if tex := v.iconTexture(el.DisplayRef, size); tex != nil {
		tex.SetAlphaMod(alpha)
		v.renderer.Copy(tex, nil, &sdl.Rect{X: x, Y: y, W: size, H: size})
	} else {
		accent := v.opts.Accent
		v.renderer.SetDrawColor(accent.R, accent.G, accent.B, alpha)
		v.renderer.FillRect(&sdl.Rect{X: x, Y: y, W: size, H: size})
	}

	if el.Label != "" && el.Kind == taralli.ElementItem {
		v.drawText(el.Label, x+size+12, y+size/2, alpha)
	}
}

// drawDepthIndicator renders a vertical bar along the left edge that
// deepens with the stack.
func (v *View) drawDepthIndicator(el taralli.RenderElement) {
	width := int32(4 + el.Value*3)
	if width <= 0 {
		return
	}
	accent := v.opts.Accent
	v.renderer.SetDrawColor(accent.R, accent.G, accent.B, uint8(el.Opacity*255))
	v.renderer.FillRect(&sdl.Rect{X: 0, Y: 0, W: width, H: v.height})
}

// drawPage renders a content page's title and body lines.
func (v *View) drawPage(el taralli.RenderElement) {
	if el.Page == nil || v.font == nil {
		return
	}
	alpha := uint8(el.Opacity * 255)
	x := int32(el.X) + 20
	y := int32(40)

	v.drawText(el.Page.Title, x, y, alpha)
	y += int32(v.font.Height()) + 16
	for _, line := range el.Page.Body {
		v.drawText(line, x, y, alpha)
		y += int32(v.font.Height()) + 6
		if y > v.height-40 {
			break
		}
	}
}

func (v *View) drawText(text string, x, y int32, alpha uint8) {
	if v.font == nil || text == "" {
		return
	}
	surface, err := v.font.RenderUTF8Blended(text, sdl.Color{R: 255, G: 255, B: 255, A: 255})
	if err != nil {
		return
	}
	defer surface.Free()

	texture, err := v.renderer.CreateTextureFromSurface(surface)
	if err != nil {
		return
	}
	defer texture.Destroy()

	texture.SetAlphaMod(alpha)
	v.renderer.Copy(texture, nil, &sdl.Rect{X: x, Y: y - surface.H/2, W: surface.W, H: surface.H})
}

// iconTexture returns the cached texture for an SVG icon rasterized at
// the given square size, loading and rendering it on first use.
func (v *View) iconTexture(ref string, size int32) *sdl.Texture {
	if ref == "" {
		return nil
	}
	key := fmt.Sprintf("%s@%d", ref, size)
	if tex := v.icons.Get(key); tex != nil {
		return tex
	}

	path := ref
	if v.opts.IconDir != "" && !filepath.IsAbs(ref) {
		path = filepath.Join(v.opts.IconDir, ref)
	}
	tex, err := v.rasterizeSVG(path, int(size))
	if err != nil {
		return nil
	}
	v.icons.Set(key, tex)
	return tex
}

// rasterizeSVG renders an SVG file into an RGBA image with rasterx and
// uploads it as a texture.
func (v *View) rasterizeSVG(path string, size int) (*sdl.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	icon, err := oksvg.ReadIconStream(f)
	if err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	surface, err := sdl.CreateRGBSurfaceWithFormatFrom(
		unsafe.Pointer(&img.Pix[0]),
		int32(size), int32(size), 32, int32(img.Stride),
		sdl.PIXELFORMAT_ABGR8888,
	)
	if err != nil {
		return nil, err
	}
	defer surface.Free()

	tex, err := v.renderer.CreateTextureFromSurface(surface)
	if err != nil {
		return nil, err
	}
	tex.SetBlendMode(sdl.BLENDMODE_BLEND)
	return tex, nil
}
