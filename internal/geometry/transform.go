package geometry

// ScaleContext is the render state of one page in the viewer.
type ScaleContext struct {
	Scale      float64 `json:"scale"`      // zoom factor, 1 = 100%
	PageWidth  float64 `json:"pageWidth"`  // unscaled page width in PDF points
	PageHeight float64 `json:"pageHeight"` // unscaled page height in PDF points
	OffsetX    float64 `json:"offsetX"`    // page origin inside the scroll container
	OffsetY    float64 `json:"offsetY"`
}

// ViewportRect is a rectangle in on-screen pixels. Width and Height are the
// rendered page size. It is only ever held while an overlay is mounted.
type ViewportRect struct {
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ViewportPosition is a highlight position projected onto the screen.
type ViewportPosition struct {
	BoundingRect ViewportRect   `json:"boundingRect"`
	Rects        []ViewportRect `json:"rects"`
	PageNumber   int            `json:"pageNumber"`
}

// viewportSize returns the rendered page size for ctx.
func (ctx ScaleContext) viewportSize() (float64, float64) {
	return ctx.PageWidth * ctx.Scale, ctx.PageHeight * ctx.Scale
}

// Valid reports whether ctx describes a drawable page.
func (ctx ScaleContext) Valid() bool {
	return ctx.Scale > 0 && ctx.PageWidth > 0 && ctx.PageHeight > 0
}

// RectToViewport projects one scaled rectangle onto the screen.
func RectToViewport(r Scaled, ctx ScaleContext) ViewportRect {
	vw, vh := ctx.viewportSize()

	refW, refH := r.Width, r.Height
	if refW <= 0 {
		refW = ctx.PageWidth
	}
	if refH <= 0 {
		refH = ctx.PageHeight
	}

	sx, sy := 0.0, 0.0
	if refW > 0 {
		sx = vw / refW
	}
	if refH > 0 {
		sy = vh / refH
	}

	return ViewportRect{
		X1:     r.X1*sx + ctx.OffsetX,
		Y1:     r.Y1*sy + ctx.OffsetY,
		X2:     r.X2*sx + ctx.OffsetX,
		Y2:     r.Y2*sy + ctx.OffsetY,
		Width:  vw,
		Height: vh,
	}
}

// Frame is the reference size persisted rectangles are expressed in. A
// zero Frame means the page's own frame.
type Frame struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageFrame returns the unscaled page size of ctx as a frame.
func (ctx ScaleContext) PageFrame() Frame {
	return Frame{Width: ctx.PageWidth, Height: ctx.PageHeight}
}

// Frame returns the reference frame of the bounding rectangle.
func (p ScaledPosition) Frame() Frame {
	return Frame{Width: p.BoundingRect.Width, Height: p.BoundingRect.Height}
}

// RectToScaled converts an on-screen rectangle back into the page frame.
func RectToScaled(v ViewportRect, ctx ScaleContext) Scaled {
	return RectToScaledIn(v, ctx, ctx.PageFrame())
}

// RectToScaledIn converts an on-screen rectangle into frame f. A zero
// dimension in f is measured against the page and written back as zero,
// mirroring RectToViewport.
func RectToScaledIn(v ViewportRect, ctx ScaleContext, f Frame) Scaled {
	vw, vh := v.Width, v.Height
	if vw <= 0 || vh <= 0 {
		vw, vh = ctx.viewportSize()
	}

	refW, refH := f.Width, f.Height
	if refW <= 0 {
		refW = ctx.PageWidth
	}
	if refH <= 0 {
		refH = ctx.PageHeight
	}

	sx, sy := 0.0, 0.0
	if vw > 0 {
		sx = refW / vw
	}
	if vh > 0 {
		sy = refH / vh
	}

	return Scaled{
		X1:     (v.X1 - ctx.OffsetX) * sx,
		Y1:     (v.Y1 - ctx.OffsetY) * sy,
		X2:     (v.X2 - ctx.OffsetX) * sx,
		Y2:     (v.Y2 - ctx.OffsetY) * sy,
		Width:  max(f.Width, 0),
		Height: max(f.Height, 0),
	}
}

// ToViewport projects a persisted position onto the screen. Line rects go
// through the same transform as the bounding rect.
func ToViewport(p ScaledPosition, ctx ScaleContext) ViewportPosition {
	out := ViewportPosition{
		BoundingRect: RectToViewport(p.BoundingRect, ctx),
		PageNumber:   p.PageNumber,
	}
	if p.Rects != nil {
		out.Rects = make([]ViewportRect, len(p.Rects))
		for i, r := range p.Rects {
			out.Rects[i] = RectToViewport(r, ctx)
		}
	}
	return out
}

// ToScaled converts an on-screen position into the durable form,
// expressed in the page's own frame.
func ToScaled(v ViewportPosition, ctx ScaleContext) ScaledPosition {
	return ToScaledIn(v, ctx, ctx.PageFrame())
}

// ToScaledIn converts an on-screen position into frame f. Passing the
// frame of the position that was projected gives it back unchanged.
func ToScaledIn(v ViewportPosition, ctx ScaleContext, f Frame) ScaledPosition {
	out := ScaledPosition{
		BoundingRect: RectToScaledIn(v.BoundingRect, ctx, f),
		PageNumber:   v.PageNumber,
	}
	if v.Rects != nil {
		out.Rects = make([]Scaled, len(v.Rects))
		for i, r := range v.Rects {
			out.Rects[i] = RectToScaledIn(r, ctx, f)
		}
	}
	return out
}

// Equal reports whether two viewport rectangles match within tolerance.
func (r ViewportRect) Equal(o ViewportRect) bool {
	return near(r.X1, o.X1) && near(r.Y1, o.Y1) && near(r.X2, o.X2) &&
		near(r.Y2, o.Y2) && near(r.Width, o.Width) && near(r.Height, o.Height)
}

// Equal reports whether two viewport positions match within tolerance.
func (p ViewportPosition) Equal(o ViewportPosition) bool {
	if p.PageNumber != o.PageNumber || len(p.Rects) != len(o.Rects) {
		return false
	}
	if !p.BoundingRect.Equal(o.BoundingRect) {
		return false
	}
	for i := range p.Rects {
		if !p.Rects[i].Equal(o.Rects[i]) {
			return false
		}
	}
	return true
}
