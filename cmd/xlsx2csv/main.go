// Command xlsx2csv converts one sheet of an XLSX workbook to CSV.
package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/amiyasaka/xlsx-go/xlsx"
)

var version = "dev"

type options struct {
	sheetName      string
	cellRange      string
	header         string
	stopAtEmpty    string
	allVarchar     bool
	ignoreErrors   bool
	emptyAsVarchar bool
	delimiter      string
	outputEncoding string
	outputPath     string
	verbose        bool
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "xlsx2csv:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	opts := &options{}

	return &cli.App{
		Name:      "xlsx2csv",
		Usage:     "convert a sheet of an XLSX workbook to CSV",
		Version:   version,
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sheetname", Aliases: []string{"n"}, Usage: "sheet name to convert (default: first sheet)", Destination: &opts.sheetName},
			&cli.StringFlag{Name: "range", Aliases: []string{"r"}, Usage: "explicit cell range, e.g. A1:C10", Destination: &opts.cellRange},
			&cli.StringFlag{Name: "header", Value: "auto", Usage: "header detection: auto, yes or no", Destination: &opts.header},
			&cli.StringFlag{Name: "stop-at-empty", Value: "auto", Usage: "end at the first empty row: auto, yes or no", Destination: &opts.stopAtEmpty},
			&cli.BoolFlag{Name: "all-varchar", Aliases: []string{"a"}, Usage: "skip type inference, every column is text", Destination: &opts.allVarchar},
			&cli.BoolFlag{Name: "ignore-errors", Aliases: []string{"i"}, Usage: "null cells that fail to convert", Destination: &opts.ignoreErrors},
			&cli.BoolFlag{Name: "empty-as-varchar", Usage: "treat empty padding cells as text", Destination: &opts.emptyAsVarchar},
			&cli.StringFlag{Name: "delimiter", Aliases: []string{"d"}, Value: ",", Usage: "field delimiter", Destination: &opts.delimiter},
			&cli.StringFlag{Name: "outputencoding", Aliases: []string{"c"}, Value: "utf-8", Usage: "output CSV encoding", Destination: &opts.outputEncoding},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default: stdout)", Destination: &opts.outputPath},
			&cli.BoolFlag{Name: "verbose", Usage: "trace bind-phase decisions to stderr", Destination: &opts.verbose},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one input file is required", 2)
			}
			return convert(c.Args().First(), opts, os.Stdout)
		},
	}
}

func readOptions(opts *options) (*xlsx.ReadOptions, error) {
	ro := &xlsx.ReadOptions{
		Sheet:          opts.sheetName,
		Range:          opts.cellRange,
		AllVarchar:     opts.allVarchar,
		IgnoreErrors:   opts.ignoreErrors,
		EmptyAsVarchar: opts.emptyAsVarchar,
	}
	switch opts.header {
	case "auto":
	case "yes":
		ro.Header = xlsx.HeaderForce
	case "no":
		ro.Header = xlsx.HeaderNever
	default:
		return nil, fmt.Errorf("invalid header mode %q", opts.header)
	}
	switch opts.stopAtEmpty {
	case "auto":
	case "yes", "no":
		v := opts.stopAtEmpty == "yes"
		ro.StopAtEmpty = &v
	default:
		return nil, fmt.Errorf("invalid stop-at-empty mode %q", opts.stopAtEmpty)
	}
	if opts.verbose {
		ro.Logfile = os.Stderr
		ro.Verbosity = 1
	}
	return ro, nil
}

func convert(path string, opts *options, stdout io.Writer) error {
	ro, err := readOptions(opts)
	if err != nil {
		return err
	}

	r, err := xlsx.OpenReader(path, ro)
	if err != nil {
		return err
	}
	defer r.Close()

	out := stdout
	if opts.outputPath != "" {
		f, cerr := os.Create(opts.outputPath)
		if cerr != nil {
			return cerr
		}
		defer f.Close()
		out = f
	}

	enc, err := htmlindex.Get(opts.outputEncoding)
	if err != nil {
		return fmt.Errorf("unknown output encoding %q", opts.outputEncoding)
	}
	encoded := transform.NewWriter(writerOnly{out}, enc.NewEncoder())
	buffered := bufio.NewWriter(encoded)

	cw := csv.NewWriter(buffered)
	if len(opts.delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character")
	}
	cw.Comma = rune(opts.delimiter[0])

	names, types := r.Columns()
	if err := cw.Write(names); err != nil {
		return err
	}

	record := make([]string, len(types))
	for {
		batch, err := r.Next()
		if err != nil {
			return err
		}
		if batch == nil {
			break
		}
		for row := 0; row < batch.Len(); row++ {
			for col := range batch.Columns {
				record[col] = renderValue(&batch.Columns[col], row)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if err := buffered.Flush(); err != nil {
		return err
	}
	return encoded.Close()
}

// writerOnly hides any Close method of the destination so closing the
// transform writer never closes stdout.
type writerOnly struct {
	io.Writer
}

// renderValue formats one batch cell for CSV output. Nulls render empty.
func renderValue(col *xlsx.Column, row int) string {
	if col.Null[row] {
		return ""
	}
	switch col.Type {
	case xlsx.TypeVarchar:
		return col.Str[row]
	case xlsx.TypeDouble:
		return strconv.FormatFloat(col.F64[row], 'g', -1, 64)
	case xlsx.TypeBoolean:
		if col.Bool[row] {
			return "true"
		}
		return "false"
	case xlsx.TypeInteger, xlsx.TypeBigInt:
		return strconv.FormatInt(col.I64[row], 10)
	case xlsx.TypeDate:
		return time.UnixMicro(col.I64[row]).UTC().Format("2006-01-02")
	case xlsx.TypeTime:
		return time.UnixMicro(col.I64[row]).UTC().Format("15:04:05")
	case xlsx.TypeTimestamp, xlsx.TypeTimestampS:
		return time.UnixMicro(col.I64[row]).UTC().Format("2006-01-02 15:04:05")
	}
	return ""
}
