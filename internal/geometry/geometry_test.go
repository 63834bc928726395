package geometry

import (
	"encoding/json"
	"testing"
)

var letter = ScaleContext{Scale: 1.5, PageWidth: 612, PageHeight: 792, OffsetX: 10, OffsetY: 240}

func pageFramePosition() ScaledPosition {
	return ScaledPosition{
		BoundingRect: Scaled{X1: 72.25, Y1: 100.5, X2: 300.75, Y2: 140, Width: 612, Height: 792},
		Rects: []Scaled{
			{X1: 72.25, Y1: 100.5, X2: 300.75, Y2: 120, Width: 612, Height: 792},
			{X1: 72.25, Y1: 120, X2: 210.1, Y2: 140, Width: 612, Height: 792},
		},
		PageNumber: 3,
	}
}

func TestRoundTrip_PageFrame(t *testing.T) {
	contexts := []ScaleContext{
		letter,
		{Scale: 1, PageWidth: 612, PageHeight: 792},
		{Scale: 0.333, PageWidth: 612, PageHeight: 792, OffsetX: -4.5, OffsetY: 1e4},
		{Scale: 4, PageWidth: 612, PageHeight: 792},
	}

	p := pageFramePosition()
	for _, ctx := range contexts {
		got := ToScaled(ToViewport(p, ctx), ctx)
		if !got.Equal(p) {
			t.Errorf("scale %v: ToScaled(ToViewport(p)) = %+v, want %+v", ctx.Scale, got, p)
		}
	}
}

func TestRoundTrip_ViewportStableForForeignFrame(t *testing.T) {
	// Ratio coordinates in a 1x1 frame.
	r := Scaled{X1: 0.1, Y1: 0.2, X2: 0.5, Y2: 0.25, Width: 1, Height: 1}
	p := ScaledPosition{BoundingRect: r, Rects: []Scaled{r}, PageNumber: 1}

	v1 := ToViewport(p, letter)
	v2 := ToViewport(ToScaled(v1, letter), letter)
	if !v1.Equal(v2) {
		t.Errorf("viewport drifted after round trip: %+v vs %+v", v1, v2)
	}

	got := ToScaledIn(v1, letter, p.Frame())
	if !got.Equal(p) {
		t.Errorf("ToScaledIn(ToViewport(p), frame) = %+v, want %+v", got, p)
	}
}

func TestRoundTrip_ZeroFrameStaysZero(t *testing.T) {
	p := ScaledPosition{
		BoundingRect: Scaled{X1: 5, Y1: 6, X2: 15, Y2: 10},
		PageNumber:   2,
	}
	for _, ctx := range []ScaleContext{letter, {Scale: 0.5, PageWidth: 595, PageHeight: 842}} {
		got := ToScaledIn(ToViewport(p, ctx), ctx, p.Frame())
		if !got.Equal(p) {
			t.Errorf("scale %v: round trip = %+v, want %+v", ctx.Scale, got, p)
		}
	}
}

func TestToScaled_WritesPageFrame(t *testing.T) {
	p := ScaledPosition{
		BoundingRect: Scaled{X1: 0.1, Y1: 0.2, X2: 0.5, Y2: 0.25, Width: 1, Height: 1},
		PageNumber:   1,
	}
	got := ToScaled(ToViewport(p, letter), letter).BoundingRect
	want := Scaled{X1: 61.2, Y1: 158.4, X2: 306, Y2: 198, Width: 612, Height: 792}
	if !got.Equal(want) {
		t.Errorf("ToScaled() = %+v, want %+v", got, want)
	}
}

func TestToViewport_Projection(t *testing.T) {
	p := ScaledPosition{
		BoundingRect: Scaled{X1: 100, Y1: 200, X2: 300, Y2: 220, Width: 612, Height: 792},
		PageNumber:   1,
	}

	got := ToViewport(p, letter).BoundingRect
	want := ViewportRect{X1: 160, Y1: 540, X2: 460, Y2: 570, Width: 918, Height: 1188}
	if !got.Equal(want) {
		t.Errorf("ToViewport() = %+v, want %+v", got, want)
	}
}

func TestToViewport_RectsShareTransform(t *testing.T) {
	p := pageFramePosition()
	v := ToViewport(p, letter)

	if len(v.Rects) != len(p.Rects) {
		t.Fatalf("got %d rects, want %d", len(v.Rects), len(p.Rects))
	}
	for i, r := range p.Rects {
		if !v.Rects[i].Equal(RectToViewport(r, letter)) {
			t.Errorf("rect %d transformed differently from RectToViewport", i)
		}
	}
	if v.PageNumber != 3 {
		t.Errorf("PageNumber = %d, want 3", v.PageNumber)
	}
}

func TestToViewport_NilRectsStayNil(t *testing.T) {
	p := ScaledPosition{BoundingRect: Scaled{X2: 1, Y2: 1}, PageNumber: 1}
	if v := ToViewport(p, letter); v.Rects != nil {
		t.Errorf("Rects = %v, want nil", v.Rects)
	}
}

func TestScaledUnmarshal_Shapes(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Scaled
	}{
		{
			name: "canonical",
			json: `{"x1":1,"y1":2,"x2":3,"y2":5,"width":612,"height":792}`,
			want: Scaled{X1: 1, Y1: 2, X2: 3, Y2: 5, Width: 612, Height: 792},
		},
		{
			name: "legacy",
			json: `{"left":10,"top":20,"width":30,"height":5}`,
			want: Scaled{X1: 10, Y1: 20, X2: 40, Y2: 25},
		},
		{
			name: "numeric strings",
			json: `{"x1":"1.5","y1":2,"x2":"3","y2":4}`,
			want: Scaled{X1: 1.5, Y1: 2, X2: 3, Y2: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Scaled
			if err := json.Unmarshal([]byte(tt.json), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScaledUnmarshal_UnknownShape(t *testing.T) {
	var got Scaled
	if err := json.Unmarshal([]byte(`{"a":1}`), &got); err == nil {
		t.Error("expected error for unrecognized shape")
	}
}

func TestLegacyRendersLikeNormalized(t *testing.T) {
	legacy := `{"boundingRect":{"left":100,"top":200,"width":200,"height":20},` +
		`"rects":[{"left":100,"top":200,"width":200,"height":20}],"pageNumber":2}`
	current := `{"boundingRect":{"x1":100,"y1":200,"x2":300,"y2":220,"width":612,"height":792},` +
		`"rects":[{"x1":100,"y1":200,"x2":300,"y2":220,"width":612,"height":792}],"pageNumber":2}`

	var a, b ScaledPosition
	if err := json.Unmarshal([]byte(legacy), &a); err != nil {
		t.Fatalf("legacy: %v", err)
	}
	if err := json.Unmarshal([]byte(current), &b); err != nil {
		t.Fatalf("current: %v", err)
	}

	if a.BoundingRect.X2 != 300 || a.BoundingRect.Y2 != 220 {
		t.Errorf("legacy not normalized to x1/y1/x2/y2: %+v", a.BoundingRect)
	}
	if !ToViewport(a, letter).Equal(ToViewport(b, letter)) {
		t.Errorf("legacy and normalized positions render differently")
	}
}

func TestValidate(t *testing.T) {
	if err := pageFramePosition().Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	bad := []ScaledPosition{
		{BoundingRect: Scaled{X2: 1, Y2: 1}, PageNumber: 0},
		{BoundingRect: Scaled{X1: 5, X2: 1, Y2: 1}, PageNumber: 1},
		{BoundingRect: Scaled{X2: 1, Y2: 1, Width: -1}, PageNumber: 1},
		{BoundingRect: Scaled{X2: 1, Y2: 1}, Rects: []Scaled{{Y1: 3, Y2: 1}}, PageNumber: 1},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestScaleContextValid(t *testing.T) {
	if !letter.Valid() {
		t.Error("letter context should be valid")
	}
	if (ScaleContext{Scale: 0, PageWidth: 1, PageHeight: 1}).Valid() {
		t.Error("zero scale should be invalid")
	}
}
