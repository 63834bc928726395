package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/annotation"
	"github.com/matsen/folio/internal/config"
	"github.com/matsen/folio/internal/geometry"
	"github.com/matsen/folio/internal/pdf"
	"github.com/matsen/folio/internal/query"
	"github.com/matsen/folio/internal/storage"
)

var (
	highlightPaper string

	highlightFlags struct {
		page    int
		rects   []string
		frame   string
		pdfPath string
		text    string
		image   string
		comment  string
		emoji    string
		viewport bool
	}

	viewportScale      float64
	viewportPageWidth  float64
	viewportPageHeight float64
)

func init() {
	highlightCmd.PersistentFlags().StringVar(&highlightPaper, "paper", "", "Paper the highlights belong to (required)")
	highlightCmd.MarkPersistentFlagRequired("paper")

	for _, c := range []*cobra.Command{highlightAddCmd, highlightUpdateCmd} {
		c.Flags().IntVar(&highlightFlags.page, "page", 0, "Page number (1-based)")
		c.Flags().StringArrayVar(&highlightFlags.rects, "rect", nil, "Highlighted rectangle x1,y1,x2,y2 (repeatable)")
		c.Flags().StringVar(&highlightFlags.frame, "frame", "", "Reference frame width,height of the rectangles (default: page size)")
		c.Flags().StringVar(&highlightFlags.text, "text", "", "Highlighted text")
		c.Flags().StringVar(&highlightFlags.image, "image", "", "Captured image (data URL) for area highlights")
		c.Flags().StringVar(&highlightFlags.comment, "comment", "", "Comment text")
		c.Flags().StringVar(&highlightFlags.emoji, "emoji", "", "Comment emoji")
	}
	for _, c := range []*cobra.Command{highlightAddCmd, highlightUpdateCmd, highlightViewportCmd} {
		c.Flags().StringVar(&highlightFlags.pdfPath, "pdf", "", "PDF file, relative to pdf_root, to read page size from")
	}
	for _, c := range []*cobra.Command{highlightUpdateCmd, highlightViewportCmd} {
		c.Flags().Float64Var(&viewportScale, "scale", 1, "Render scale")
		c.Flags().Float64Var(&viewportPageWidth, "page-width", 0, "Unscaled page width in points (instead of --pdf)")
		c.Flags().Float64Var(&viewportPageHeight, "page-height", 0, "Unscaled page height in points (instead of --pdf)")
	}
	highlightUpdateCmd.Flags().BoolVar(&highlightFlags.viewport, "viewport", false, "Read --rect as viewport pixels at --scale")

	highlightCmd.AddCommand(highlightAddCmd, highlightListCmd, highlightUpdateCmd, highlightDeleteCmd, highlightViewportCmd)
	rootCmd.AddCommand(highlightCmd)
}

var highlightCmd = &cobra.Command{
	Use:   "highlight",
	Short: "Manage PDF highlights of a paper",
}

func openHighlightStore(db *storage.DB, cfg *config.Config) *annotation.Store {
	return annotation.NewStore(highlightPaper, db, query.NewClient(cfg.StaleDuration()))
}

// resolvePDF maps a --pdf argument onto the configured PDF root.
func resolvePDF(cfg *config.Config, path string) string {
	full, err := pdf.NewResolver(config.ExpandPath(cfg.PDFRoot)).ResolvePath(path)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return full
}

// parseNumbers parses a comma-separated list of exactly n numbers.
func parseNumbers(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := cast.ToFloat64E(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		out[i] = f
	}
	return out, nil
}

// frameFromFlags returns the reference frame named by --frame, or by the
// size of page in --pdf. ok is false when neither flag was given.
func frameFromFlags(cfg *config.Config, page int) (f geometry.Frame, ok bool) {
	switch {
	case highlightFlags.frame != "":
		wh, err := parseNumbers(highlightFlags.frame, 2)
		if err != nil {
			exitWithError(ExitError, "--frame: %v", err)
		}
		return geometry.Frame{Width: wh[0], Height: wh[1]}, true
	case highlightFlags.pdfPath != "":
		size, err := pdf.PageSize(resolvePDF(cfg, highlightFlags.pdfPath), page)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		return geometry.Frame{Width: size.Width, Height: size.Height}, true
	}
	return geometry.Frame{}, false
}

// rectsFromFlags parses every --rect. The second result encloses them all.
func rectsFromFlags() ([][]float64, []float64) {
	if len(highlightFlags.rects) == 0 {
		exitWithError(ExitError, "at least one --rect is required")
	}

	var rects [][]float64
	var bound []float64
	for i, arg := range highlightFlags.rects {
		v, err := parseNumbers(arg, 4)
		if err != nil {
			exitWithError(ExitError, "--rect: %v", err)
		}
		rects = append(rects, v)
		if i == 0 {
			bound = append([]float64(nil), v...)
			continue
		}
		bound[0], bound[1] = min(bound[0], v[0]), min(bound[1], v[1])
		bound[2], bound[3] = max(bound[2], v[2]), max(bound[3], v[3])
	}
	return rects, bound
}

// positionFromFlags builds a position on page from --rect, in frame f.
func positionFromFlags(page int, f geometry.Frame) geometry.ScaledPosition {
	rects, bound := rectsFromFlags()
	scaled := func(v []float64) geometry.Scaled {
		return geometry.Scaled{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3], Width: f.Width, Height: f.Height}
	}

	pos := geometry.ScaledPosition{BoundingRect: scaled(bound), PageNumber: page}
	for _, v := range rects {
		pos.Rects = append(pos.Rects, scaled(v))
	}
	mustValidPosition(pos)
	return pos
}

// viewportFromFlags builds an on-screen position on page from --rect.
func viewportFromFlags(page int) geometry.ViewportPosition {
	rects, bound := rectsFromFlags()
	vr := func(v []float64) geometry.ViewportRect {
		return geometry.ViewportRect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	}

	vp := geometry.ViewportPosition{BoundingRect: vr(bound), PageNumber: page}
	for _, v := range rects {
		vp.Rects = append(vp.Rects, vr(v))
	}
	return vp
}

func mustValidPosition(pos geometry.ScaledPosition) {
	if err := pos.Validate(); err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
}

// scaleContextFromFlags reads the page render state from --pdf, or from
// --page-width and --page-height, at --scale.
func scaleContextFromFlags(cfg *config.Config, page int) geometry.ScaleContext {
	var sc geometry.ScaleContext
	if highlightFlags.pdfPath != "" {
		var err error
		sc, err = pdf.ScaleContextFor(resolvePDF(cfg, highlightFlags.pdfPath), page, viewportScale)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
	} else {
		sc = geometry.ScaleContext{Scale: viewportScale, PageWidth: viewportPageWidth, PageHeight: viewportPageHeight}
	}
	if !sc.Valid() {
		exitWithError(ExitError, "page size unknown: pass --pdf or --page-width and --page-height")
	}
	return sc
}

func mustGetHighlight(ctx context.Context, store *annotation.Store, id string) annotation.Highlight {
	if _, err := store.List(ctx); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	h, ok := store.Get(id)
	if !ok {
		exitWithError(ExitDataError, "%v: %s", annotation.ErrNotFound, id)
	}
	return h
}

func commentFromFlags() *annotation.Comment {
	return &annotation.Comment{Text: highlightFlags.comment, Emoji: highlightFlags.emoji}
}

func outputHighlight(verb string, h annotation.Highlight) {
	if humanOutput {
		outputHuman("%s %s\n", verb, formatHighlightLine(h))
	} else {
		outputJSON(h)
	}
}

var highlightAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a highlight",
	Long: `Add a highlight to a paper.

Rectangles are given in the coordinates of the reference frame set by
--frame, or by the page size read from --pdf.

Examples:
  folio highlight add --paper p-9 --page 3 --rect 72,100,300,114 --frame 612,792 --text "quoted text"
  folio highlight add --paper p-9 --page 1 --rect 50,50,200,200 --pdf paper.pdf --image data:image/png;base64,...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		frame, _ := frameFromFlags(cfg, highlightFlags.page)
		nh := annotation.NewHighlight{
			Position: positionFromFlags(highlightFlags.page, frame),
			Content:  annotation.Content{Text: highlightFlags.text, Image: highlightFlags.image},
		}
		if cmd.Flags().Changed("comment") || cmd.Flags().Changed("emoji") {
			nh.Comment = commentFromFlags()
		}

		h, err := openHighlightStore(db, cfg).Create(ctx, nh)
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}
		outputHighlight("Added", h)
		return nil
	},
}

var highlightListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a paper's highlights",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		hs, err := openHighlightStore(db, cfg).List(context.Background())
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}

		if humanOutput {
			for _, h := range hs {
				outputHuman("%s\n", formatHighlightLine(h))
			}
			if len(hs) == 0 {
				outputHuman("No highlights\n")
			}
		} else {
			if hs == nil {
				hs = []annotation.Highlight{}
			}
			outputJSON(hs)
		}
		return nil
	},
}

var highlightUpdateCmd = &cobra.Command{
	Use:   "update <highlight-id>",
	Short: "Change a highlight's position, content or comment",
	Long: `Change a highlight. Only the parts named by flags are sent:
--rect replaces the position, --text or --image replaces the content,
--comment or --emoji replaces the comment.

Rectangles are read in the frame given by --frame or --pdf, or else in
the highlight's stored frame. With --viewport they are on-screen pixels
of the page rendered at --scale and are converted back into the stored
frame. --page defaults to the highlight's page.

Examples:
  folio highlight update h-1 --paper p-9 --rect 0.1,0.2,0.5,0.25
  folio highlight update h-1 --paper p-9 --viewport --rect 100,300,460,330 --pdf paper.pdf --scale 1.5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		store := openHighlightStore(db, cfg)

		var u annotation.Update
		if cmd.Flags().Changed("rect") {
			h := mustGetHighlight(ctx, store, args[0])
			page := h.Position.PageNumber
			if cmd.Flags().Changed("page") {
				page = highlightFlags.page
			}

			var pos geometry.ScaledPosition
			if highlightFlags.viewport {
				pos = annotation.FromViewport(h, viewportFromFlags(page), scaleContextFromFlags(cfg, page))
				mustValidPosition(pos)
			} else {
				frame, ok := frameFromFlags(cfg, page)
				if !ok {
					frame = h.Position.Frame()
				}
				pos = positionFromFlags(page, frame)
			}
			u.Position = &pos
		}
		if cmd.Flags().Changed("text") || cmd.Flags().Changed("image") {
			u.Content = &annotation.Content{Text: highlightFlags.text, Image: highlightFlags.image}
		}
		if cmd.Flags().Changed("comment") || cmd.Flags().Changed("emoji") {
			u.Comment = commentFromFlags()
		}
		if u.Position == nil && u.Content == nil && u.Comment == nil {
			exitWithError(ExitError, "nothing to update")
		}

		h, err := store.Update(ctx, args[0], u)
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}
		outputHighlight("Updated", h)
		return nil
	},
}

var highlightDeleteCmd = &cobra.Command{
	Use:   "delete <highlight-id>",
	Short: "Delete a highlight",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		if err := openHighlightStore(db, cfg).Delete(context.Background(), args[0]); err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}

		if humanOutput {
			outputHuman("Deleted %s\n", args[0])
		} else {
			outputJSON(StatusResponse{Status: "deleted", ID: args[0]})
		}
		return nil
	},
}

var highlightViewportCmd = &cobra.Command{
	Use:   "viewport <highlight-id>",
	Short: "Project a highlight onto viewport pixels",
	Long: `Project a highlight's stored position onto the pixels of a page
rendered at --scale.

Examples:
  folio highlight viewport h-1 --paper p-9 --pdf paper.pdf --scale 1.5
  folio highlight viewport h-1 --paper p-9 --page-width 612 --page-height 792`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		h := mustGetHighlight(ctx, openHighlightStore(db, cfg), args[0])
		vp := annotation.Viewport(h, scaleContextFromFlags(cfg, h.Position.PageNumber))
		if humanOutput {
			b := vp.BoundingRect
			outputHuman("page %d: (%.1f, %.1f)-(%.1f, %.1f) on %.0fx%.0f px (%d rects)\n",
				vp.PageNumber, b.X1, b.Y1, b.X2, b.Y2, b.Width, b.Height, len(vp.Rects))
		} else {
			outputJSON(vp)
		}
		return nil
	},
}
