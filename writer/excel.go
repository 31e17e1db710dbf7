package writer

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"stock-ticker/fetcher"
)

const excelSheet = "Stock Data"

var excelHeaders = []string{
	"Symbol", "Name", "Price", "Prev Close", "Change", "Change %",
	"Volume", "Source", "Updated", "Status",
}

// ExcelWriter keeps one workbook updated in place: each tracked symbol gets a
// stable row, assigned on first sight and rewritten on every refresh.
type ExcelWriter struct {
	path string

	mu      sync.Mutex
	file    *excelize.File
	rows    map[string]int
	nextRow int
}

// NewExcelWriter opens path if it exists (re-adopting rows written by an
// earlier run) or creates a fresh workbook with a header row.
func NewExcelWriter(path string) (*ExcelWriter, error) {
	w := &ExcelWriter{path: path, rows: make(map[string]int), nextRow: 2}

	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open workbook %s", path)
		}
		w.file = f
		if idx, _ := f.GetSheetIndex(excelSheet); idx < 0 {
			f.NewSheet(excelSheet)
			w.writeHeader()
		} else if err := w.adoptRows(); err != nil {
			return nil, err
		}
		return w, nil
	}

	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), excelSheet)
	w.file = f
	w.writeHeader()
	if err := f.SaveAs(path); err != nil {
		return nil, errors.Wrapf(err, "create workbook %s", path)
	}
	logrus.Infof("Created workbook %s", path)
	return w, nil
}

func (w *ExcelWriter) writeHeader() {
	for i, hdr := range excelHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		w.file.SetCellValue(excelSheet, cell, hdr)
	}
}

// adoptRows rebuilds the symbol-to-row mapping from an existing sheet so
// symbols keep their rows across restarts.
func (w *ExcelWriter) adoptRows() error {
	rows, err := w.file.GetRows(excelSheet)
	if err != nil {
		return errors.Wrap(err, "scan existing workbook rows")
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		w.rows[row[0]] = i + 1
	}
	w.nextRow = len(rows) + 1
	if w.nextRow < 2 {
		w.nextRow = 2
	}
	return nil
}

func (w *ExcelWriter) rowFor(symbol string) int {
	if row, ok := w.rows[symbol]; ok {
		return row
	}
	row := w.nextRow
	w.nextRow++
	w.rows[symbol] = row
	return row
}

func (w *ExcelWriter) setCell(col, row int, value interface{}) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	w.file.SetCellValue(excelSheet, cell, value)
}

// Update mirrors the batch into the workbook and saves it. A per-symbol error
// only touches the Status and Updated cells, prior numbers stay in place.
func (w *ExcelWriter) Update(batch *fetcher.Batch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, symbol := range batch.Symbols {
		result := batch.Results[symbol]
		row := w.rowFor(symbol)
		w.setCell(1, row, symbol)

		if result.Err != nil {
			w.setCell(9, row, time.Now().Format("2006-01-02 15:04:05"))
			w.setCell(10, row, fmt.Sprintf("ERROR: %v", result.Err))
			continue
		}

		quote := result.Quote
		w.setCell(2, row, quote.Name)
		w.setCell(3, row, quote.Price)
		w.setCell(4, row, quote.PreviousClose)
		w.setCell(5, row, quote.ChangeAbs)
		if quote.ChangePct != nil {
			w.setCell(6, row, *quote.ChangePct)
		} else {
			w.setCell(6, row, "")
		}
		w.setCell(7, row, quote.Volume)
		w.setCell(8, row, string(quote.Source))
		w.setCell(9, row, quote.FetchedAt.Format("2006-01-02 15:04:05"))
		w.setCell(10, row, "OK")
	}

	if err := w.file.Save(); err != nil {
		logrus.WithError(err).Errorf("Failed to save workbook %s", w.path)
	}
}

func (w *ExcelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
