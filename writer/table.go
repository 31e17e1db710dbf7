package writer

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uilive"
	"github.com/mattn/go-colorable"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"

	"stock-ticker/config"
	"stock-ticker/fetcher"
)

var faint = color.New(color.Faint).SprintFunc()

type tableWriter struct {
	*uilive.Writer
	table *tablewriter.Table
}

// Set up ascii table writer
func NewTableWriter() *tableWriter {
	tw := &tableWriter{Writer: uilive.New()}
	tw.Writer.Out = colorable.NewColorableStdout() // For Windows
	tw.table = tablewriter.NewWriter(tw.Writer)
	tw.table.SetAutoFormatHeaders(false)
	tw.table.SetAutoWrapText(false)
	headers := viper.GetStringSlice("show")
	formattedHeaders := make([]string, len(headers))
	for i, hdr := range headers {
		formattedHeaders[i] = color.YellowString(hdr)
	}
	tw.table.SetHeader(formattedHeaders)
	tw.table.SetRowLine(true)
	tw.table.SetCenterSeparator(faint("-"))
	tw.table.SetColumnSeparator(faint("|"))
	tw.table.SetRowSeparator(faint("-"))
	return tw
}

func (tw *tableWriter) highlightChange(changePct *float64) string {
	if changePct == nil {
		return faint("n/a")
	}
	changeText := strconv.FormatFloat(*changePct, 'f', 2, 64)
	if *changePct == 0 {
		changeText = faint("0")
	} else if *changePct > 0 {
		changeText = color.GreenString(changeText)
	} else {
		changeText = color.RedString(changeText)
	}
	return changeText
}

func (tw *tableWriter) Update(batch *fetcher.Batch) {
	tw.table.ClearRows()
	// Fill in data
	for _, symbol := range batch.Symbols {
		result := batch.Results[symbol]
		if result.Err != nil {
			tw.table.Append(tw.errorColumns(symbol, result.Err))
			continue
		}
		quote := result.Quote

		var columns []string
		for _, hdr := range viper.GetStringSlice("show") {
			switch strings.ToLower(hdr) {
			case strings.ToLower(config.ColumnSymbol):
				columns = append(columns, quote.Symbol)
			case strings.ToLower(config.ColumnName):
				columns = append(columns, quote.Name)
			case strings.ToLower(config.ColumnPrice):
				columns = append(columns, FormatINR(quote.Price))
			case strings.ToLower(config.ColumnPrevClose):
				columns = append(columns, FormatINR(quote.PreviousClose))
			case strings.ToLower(config.ColumnChange):
				columns = append(columns, strconv.FormatFloat(quote.ChangeAbs, 'f', 2, 64))
			case strings.ToLower(config.ColumnChangePct):
				columns = append(columns, tw.highlightChange(quote.ChangePct))
			case strings.ToLower(config.ColumnVolume):
				columns = append(columns, FormatVolume(quote.Volume))
			case strings.ToLower(config.ColumnSource):
				columns = append(columns, string(quote.Source))
			case strings.ToLower(config.ColumnUpdated):
				columns = append(columns, quote.FetchedAt.Local().Format("15:04:05"))
			default:
				// config.Parse rejects unknown columns before any sink runs
				columns = append(columns, faint("-"))
			}
		}
		tw.table.Append(columns)
	}

	tw.table.Render()
	tw.Flush()
}

// errorColumns renders a failed symbol as its own row, the error message
// takes the second column and the rest stay blank.
func (tw *tableWriter) errorColumns(symbol string, err error) []string {
	headers := viper.GetStringSlice("show")
	columns := make([]string, len(headers))
	for i := range columns {
		columns[i] = faint("-")
	}
	if len(columns) > 0 {
		columns[0] = symbol
	}
	if len(columns) > 1 {
		columns[1] = color.RedString(err.Error())
	}
	return columns
}
