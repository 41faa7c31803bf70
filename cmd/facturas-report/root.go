package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"facturas/internal/cfdi"
	"facturas/internal/cli"
	"facturas/internal/core"
	"facturas/internal/log"
	"facturas/internal/render/pdf"
	"facturas/internal/render/xlsx"
	"facturas/internal/report"
)

type options struct {
	rfc      string
	title    string
	pdfPath  string
	xlsxPath string
	workers  int
	quiet    bool
	logLevel string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "facturas-report [file.xml|dir]...",
		Short: "Summarize CFDI v4 invoices by year, month, issuer, concept and usage",
		Long: "Reads CFDI v4 XML invoices from files and directories, removes duplicates\n" +
			"and prints the seven summary tables. Optionally writes the PDF and XLSX reports.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), opts, args, stdout, stderr)
			if err != nil {
				fmt.Fprintln(stderr, "error:", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.rfc, "rfc", "", "only include issuers whose RFC contains this text")
	f.StringVar(&opts.title, "title", "Reporte de gastos", "report title")
	f.StringVar(&opts.pdfPath, "pdf", "", "write the PDF report to this path")
	f.StringVar(&opts.xlsxPath, "xlsx", "", "write the XLSX workbook to this path")
	f.IntVarP(&opts.workers, "workers", "w", 4, "documents extracted in parallel")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "do not print the tables")
	f.StringVar(&opts.logLevel, "log-level", "warn", "debug|info|warn|error")
	return cmd
}

func run(ctx context.Context, opts options, args []string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cli.SetupLogger(opts.logLevel).WithComponent(log.ComponentCLI)

	paths, err := collectXML(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .xml files found in %s", strings.Join(args, ", "))
	}

	docs := make([]cfdi.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, cfdi.Document{Label: filepath.Base(p), Data: data})
	}

	res := cfdi.NewExtractor(cfdi.WithWorkers(opts.workers)).ExtractBatch(ctx, docs)
	for _, f := range res.Failures {
		fmt.Fprintf(stderr, "skipped %s: %v\n", f.Label, f.Cause)
	}

	set := core.Dedupe(res.Records)
	sum := report.NewEngine().Summarize(set, report.Filter{IssuerRFC: opts.rfc})
	logger.Info("Summary computed",
		log.FieldDocuments, len(docs),
		log.FieldRecords, set.Len(),
		log.FieldFailures, len(res.Failures),
		log.FieldFilter, opts.rfc)

	if !opts.quiet {
		if err := printSummary(stdout, sum); err != nil {
			return err
		}
	}

	if opts.pdfPath != "" {
		out, err := pdf.NewAssembler().Assemble(opts.title, sum.Sections())
		if err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
		if err := os.WriteFile(opts.pdfPath, out, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		fmt.Fprintf(stderr, "wrote %s\n", opts.pdfPath)
	}
	if opts.xlsxPath != "" {
		out, err := xlsx.Build(sum.Sections(), report.InvoiceTable(sum.Invoices))
		if err != nil {
			return fmt.Errorf("render xlsx: %w", err)
		}
		if err := os.WriteFile(opts.xlsxPath, out, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		fmt.Fprintf(stderr, "wrote %s\n", opts.xlsxPath)
	}
	return nil
}

// collectXML expands directories into the .xml files below them. Explicit
// file arguments are kept whatever their extension.
func collectXML(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".xml") {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return paths, nil
}

func printSummary(w io.Writer, sum report.Summary) error {
	tables, err := report.Flatten(sum.Sections())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Facturas: %d  Total: %s  Impuestos: %s\n",
		len(sum.Invoices), sum.GrandTotal().StringFixed(2), sum.GrandTax().StringFixed(2))

	for _, t := range tables {
		fmt.Fprintf(w, "\n%s\n", t.Title)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, strings.Join(t.Columns, "\t")+"\t")
		for _, row := range t.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
