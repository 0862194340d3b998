package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/services"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		out  string
		xlsx bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered transactions to CSV or Excel",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, view, err := a.filtered(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			ext, write := "csv", services.WriteCSV
			if xlsx {
				ext, write = "xlsx", services.WriteXLSX
			}
			if out == "" {
				out = services.ExportFilename(time.Now(), ext)
			}
			if out == "-" {
				return write(a.out, view)
			}

			if err := writeFile(out, view, write); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %d transactions to %s\n", view.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default filtered_sales_data_YYYYMMDD.<ext>)")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "write an Excel workbook instead of CSV")
	return cmd
}

func writeFile(path string, t *dataset.Table, write func(io.Writer, *dataset.Table) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
