package pdf

import (
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"

	"github.com/matsen/folio/internal/geometry"
)

// maxTreeDepth bounds the walk up the page tree when resolving inherited
// attributes.
const maxTreeDepth = 64

// Size is a page's dimensions in PDF points as displayed, rotation applied.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageSize reads the MediaBox of a 1-based page. MediaBox and Rotate are
// inherited from ancestor page-tree nodes when the page omits them.
func PageSize(path string, page int) (Size, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Size{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return pageSize(r, page)
}

func pageSize(r *pdf.Reader, page int) (Size, error) {
	if page < 1 || page > r.NumPage() {
		return Size{}, fmt.Errorf("page %d out of range (document has %d)", page, r.NumPage())
	}
	p := r.Page(page)
	if p.V.IsNull() {
		return Size{}, fmt.Errorf("page %d not found", page)
	}

	box := inherited(p.V, "MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return Size{}, fmt.Errorf("page %d has no usable MediaBox", page)
	}

	w := math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
	h := math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
	if w == 0 || h == 0 {
		return Size{}, fmt.Errorf("page %d has an empty MediaBox", page)
	}

	rotate := int(inherited(p.V, "Rotate").Int64())
	if rotate%180 != 0 {
		w, h = h, w
	}
	return Size{Width: w, Height: h}, nil
}

// inherited looks key up on v and then on its Parent chain.
func inherited(v pdf.Value, key string) pdf.Value {
	for i := 0; i < maxTreeDepth && !v.IsNull(); i++ {
		if found := v.Key(key); !found.IsNull() {
			return found
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// ScaleContextFor builds the scale context of a page rendered at scale
// with its origin at the top-left of the viewer.
func ScaleContextFor(path string, page int, scale float64) (geometry.ScaleContext, error) {
	if scale <= 0 {
		return geometry.ScaleContext{}, fmt.Errorf("scale must be positive, got %v", scale)
	}
	size, err := PageSize(path, page)
	if err != nil {
		return geometry.ScaleContext{}, err
	}
	return geometry.ScaleContext{
		Scale:      scale,
		PageWidth:  size.Width,
		PageHeight: size.Height,
	}, nil
}

// NumPages returns the number of pages in a PDF.
func NumPages(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return r.NumPage(), nil
}
