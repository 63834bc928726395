// Package geometry converts highlight positions between the persisted,
// resolution-independent form and on-screen viewport pixels.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// Scaled is a rectangle in the persisted, canonical form.
//
// X1..Y2 are expressed in a reference frame Width x Height, normally the
// unscaled page size in PDF points. A zero frame means "the page's own
// frame" and is resolved against the ScaleContext at transform time.
type Scaled struct {
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScaledPosition is the durable position of a highlight on one page.
type ScaledPosition struct {
	BoundingRect Scaled   `json:"boundingRect"`
	Rects        []Scaled `json:"rects"`
	PageNumber   int      `json:"pageNumber"`
}

// UnmarshalJSON accepts both the current {x1,y1,x2,y2,width,height} shape
// and the legacy {left,top,width,height} shape.
func (s *Scaled) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decoding rect: %w", err)
	}
	if fields == nil {
		*s = Scaled{}
		return nil
	}
	rect, err := NormalizeRect(fields)
	if err != nil {
		return err
	}
	*s = rect
	return nil
}

// NormalizeRect converts a decoded rectangle in either supported shape to
// canonical form. Numeric strings are accepted.
//
// A legacy rectangle carries its own extent in width/height and no page
// frame, so the result has a zero frame. Using that extent as the frame
// would scale the rectangle against itself.
func NormalizeRect(fields map[string]any) (Scaled, error) {
	_, hasLeft := fields["left"]
	_, hasX1 := fields["x1"]
	_, hasX2 := fields["x2"]
	_, hasWidth := fields["width"]

	switch {
	case hasLeft && hasWidth:
		left, err := number(fields, "left")
		if err != nil {
			return Scaled{}, err
		}
		top, err := number(fields, "top")
		if err != nil {
			return Scaled{}, err
		}
		width, err := number(fields, "width")
		if err != nil {
			return Scaled{}, err
		}
		height, err := number(fields, "height")
		if err != nil {
			return Scaled{}, err
		}
		return Scaled{X1: left, Y1: top, X2: left + width, Y2: top + height}, nil

	case hasX1 || hasX2:
		var r Scaled
		var err error
		for _, f := range []struct {
			key string
			dst *float64
		}{
			{"x1", &r.X1}, {"y1", &r.Y1}, {"x2", &r.X2}, {"y2", &r.Y2},
			{"width", &r.Width}, {"height", &r.Height},
		} {
			if *f.dst, err = number(fields, f.key); err != nil {
				return Scaled{}, err
			}
		}
		return r, nil
	}

	return Scaled{}, fmt.Errorf("unrecognized rect shape")
}

// number reads an optional numeric field; absent or null reads as zero.
func number(fields map[string]any, key string) (float64, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("rect field %s: %w", key, err)
	}
	return f, nil
}

// Validate checks that a position can be transformed.
func (p ScaledPosition) Validate() error {
	if p.PageNumber < 1 {
		return fmt.Errorf("invalid page number %d", p.PageNumber)
	}
	if err := p.BoundingRect.validate(); err != nil {
		return fmt.Errorf("bounding rect: %w", err)
	}
	for i, r := range p.Rects {
		if err := r.validate(); err != nil {
			return fmt.Errorf("rect %d: %w", i, err)
		}
	}
	return nil
}

func (r Scaled) validate() error {
	for _, v := range []float64{r.X1, r.Y1, r.X2, r.Y2, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite coordinate")
		}
	}
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("negative reference frame")
	}
	if r.X2 < r.X1 || r.Y2 < r.Y1 {
		return fmt.Errorf("inverted rectangle")
	}
	return nil
}

const tolerance = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// Equal reports whether two rectangles match within floating-point tolerance.
func (r Scaled) Equal(o Scaled) bool {
	return near(r.X1, o.X1) && near(r.Y1, o.Y1) && near(r.X2, o.X2) &&
		near(r.Y2, o.Y2) && near(r.Width, o.Width) && near(r.Height, o.Height)
}

// Equal reports whether two positions match within floating-point tolerance.
func (p ScaledPosition) Equal(o ScaledPosition) bool {
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
