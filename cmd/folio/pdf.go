package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/pdf"
)

var (
	pdfPage  int
	pdfScale float64
)

func init() {
	pdfPageSizeCmd.Flags().IntVar(&pdfPage, "page", 1, "Page number (1-based)")
	pdfPageSizeCmd.Flags().Float64Var(&pdfScale, "scale", 1, "Render scale for the returned scale context")

	pdfCmd.AddCommand(pdfPageSizeCmd)
	rootCmd.AddCommand(pdfCmd)
}

var pdfCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Inspect PDF files",
}

var pdfPageSizeCmd = &cobra.Command{
	Use:   "page-size <file>",
	Short: "Show the size of a PDF page",
	Long: `Show a page's size in PDF points and the scale context a viewer
rendering it at --scale would use. Relative paths resolve against pdf_root.

Examples:
  folio pdf page-size paper.pdf --page 3
  folio pdf page-size paper.pdf --scale 1.5 --human`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		path := resolvePDF(cfg, args[0])

		pages, err := pdf.NumPages(path)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		sc, err := pdf.ScaleContextFor(path, pdfPage, pdfScale)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}

		if humanOutput {
			outputHuman("page %d of %d: %.1f x %.1f pt\n", pdfPage, pages, sc.PageWidth, sc.PageHeight)
			return nil
		}
		outputJSON(struct {
			Path  string      `json:"path"`
			Page  int         `json:"page"`
			Pages int         `json:"pages"`
			Size  pdf.Size    `json:"size"`
			Scale interface{} `json:"scale_context"`
		}{
			Path:  path,
			Page:  pdfPage,
			Pages: pages,
			Size:  pdf.Size{Width: sc.PageWidth, Height: sc.PageHeight},
			Scale: sc,
		})
		return nil
	},
}
