package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font/basicfont"
)

const (
	defaultWidth  = 1200
	defaultHeight = 800
)

// PNGRenderer draws the certificate onto a template image when one is
// configured, or onto a plain generated background otherwise.
type PNGRenderer struct {
	templatePath string
	logger       *zap.Logger
}

// Compile-time interface compliance check
var _ Renderer = (*PNGRenderer)(nil)

// NewPNGRenderer creates a renderer. templatePath may be empty.
func NewPNGRenderer(templatePath string, logger *zap.Logger) *PNGRenderer {
	return &PNGRenderer{templatePath: templatePath, logger: logger}
}

// Render draws the watermark panel, the ownership lines and the
// diagonal brand mark, then encodes the result as PNG.
func (r *PNGRenderer) Render(_ context.Context, opts Options) ([]byte, error) {
	dc, err := r.newCanvas()
	if err != nil {
		return nil, err
	}

	w := float64(dc.Width())
	h := float64(dc.Height())

	// Watermark panel, bottom-right.
	pad := w * 0.02
	panelW := w * 0.52
	panelH := h * 0.15
	x := w - pad - panelW
	y := h - pad - panelH

	dc.SetRGBA(0.03, 0.04, 0.06, 0.68)
	dc.DrawRectangle(x, y, panelW, panelH)
	dc.Fill()

	dc.SetRGBA(0, 1, 0.6, 0.95)
	dc.SetLineWidth(3)
	dc.DrawRectangle(x, y, panelW, panelH)
	dc.Stroke()

	status := "UNVERIFIED PREVIEW"
	ownerLine := "Owner: CONNECT + VERIFY"
	if opts.Verified {
		status = "VERIFIED OWNER"
		ownerLine = fmt.Sprintf("Owner: %s", shortAddr(opts.Owner))
	}

	lines := []string{
		fmt.Sprintf("W FACTORY CERT - %s", status),
		fmt.Sprintf("TokenId: %d", opts.TokenID),
		fmt.Sprintf("NFT: %s", opts.Contract),
		ownerLine,
	}

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGBA(0.85, 1, 0.94, 0.95)
	ty := y + panelH*0.25
	for _, line := range lines {
		dc.DrawString(line, x+pad, ty)
		ty += panelH * 0.2
	}

	// Diagonal brand mark across the middle.
	dc.Push()
	dc.SetRGBA(0, 1, 0.6, 0.10)
	dc.RotateAbout(-0.25, w*0.5, h*0.55)
	dc.DrawStringAnchored("W FACTORY", w*0.5, h*0.55, 0.5, 0.5)
	dc.Pop()

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode certificate png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PNGRenderer) newCanvas() (*gg.Context, error) {
	if r.templatePath == "" {
		dc := gg.NewContext(defaultWidth, defaultHeight)
		dc.SetRGB(0.05, 0.06, 0.09)
		dc.Clear()
		return dc, nil
	}

	img, err := gg.LoadImage(r.templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate template %s: %w", r.templatePath, err)
	}
	bounds := img.Bounds()
	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.DrawImage(img, 0, 0)
	return dc, nil
}

// shortAddr renders 0xabcd...1234 style addresses for the stamp.
func shortAddr(a string) string {
	if len(a) <= 10 {
		return a
	}
	return a[:6] + "..." + a[len(a)-4:]
}
