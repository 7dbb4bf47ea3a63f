package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
)

const (
	adviceSheet   = "Payment Advice"
	registerSheet = "Vouchers"

	// excelize built-in number format "#,##0.00"
	numFmtAmount = 4

	timeLayout = "2006-01-02 15:04"
)

var registerColumns = []struct {
	title string
	width float64
}{
	{"Ticket", 18},
	{"Status", 18},
	{"Company", 24},
	{"Bank", 22},
	{"Account Title", 26},
	{"Account Number", 20},
	{"Amount", 16},
	{"Description", 40},
	{"Created By", 20},
	{"Created At", 18},
	{"Checked By", 20},
	{"Initiated By", 20},
	{"Released By", 20},
	{"Released At", 18},
}

// ExcelWriter implements port.Exporter with excelize
type ExcelWriter struct {
	font   string
	logger *zap.Logger
}

// NewExcelWriter creates a workbook writer. font may be empty to keep the excelize default.
func NewExcelWriter(font string, logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{font: font, logger: logger}
}

// PaymentAdvice renders one voucher as a two-column advice slip
func (w *ExcelWriter) PaymentAdvice(v *entity.Voucher) ([]byte, error) {
	f, err := w.newFile(adviceSheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	rows := [][2]interface{}{
		{"Ticket Number", v.TicketNumber},
		{"Status", string(v.Status)},
		{"Company", v.Company},
		{"Bank", v.BankName},
		{"Account Title", v.AccountTitle},
		{"Account Number", v.AccountNumber},
		{"Amount", amountOf(v)},
		{"Description", v.Description},
		{"Prepared By", v.CreatedByName},
		{"Prepared At", v.CreatedAt.Format(timeLayout)},
		{"Checked By", stampName(v.Checked)},
		{"Initiated By", stampName(v.Initiated)},
		{"Released By", stampName(v.Released)},
		{"Released At", stampTime(v.Released)},
	}

	if err := f.SetCellValue(adviceSheet, "A1", "Payment Advice"); err != nil {
		return nil, fmt.Errorf("failed to set title: %w", err)
	}
	if err := f.SetCellStyle(adviceSheet, "A1", "A1", styles.title); err != nil {
		return nil, fmt.Errorf("failed to style title: %w", err)
	}

	for i, r := range rows {
		row := i + 3
		if err := f.SetCellValue(adviceSheet, fmt.Sprintf("A%d", row), r[0]); err != nil {
			return nil, fmt.Errorf("failed to set label at row %d: %w", row, err)
		}
		if err := f.SetCellValue(adviceSheet, fmt.Sprintf("B%d", row), r[1]); err != nil {
			return nil, fmt.Errorf("failed to set value at row %d: %w", row, err)
		}
		if err := f.SetCellStyle(adviceSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.header); err != nil {
			return nil, fmt.Errorf("failed to style label at row %d: %w", row, err)
		}
		if r[0] == "Amount" {
			if err := f.SetCellStyle(adviceSheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), styles.amount); err != nil {
				return nil, fmt.Errorf("failed to style amount: %w", err)
			}
		}
	}

	if err := f.SetColWidth(adviceSheet, "A", "A", 20); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(adviceSheet, "B", "B", 48); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	w.logger.Debug("Payment advice rendered", zap.String("voucher_id", v.ID), zap.String("ticket", v.TicketNumber))
	return w.bytes(f)
}

// Register renders a list of vouchers with a total row
func (w *ExcelWriter) Register(title string, vouchers []*entity.Voucher) ([]byte, error) {
	f, err := w.newFile(registerSheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	if err := f.SetCellValue(registerSheet, "A1", title); err != nil {
		return nil, fmt.Errorf("failed to set title: %w", err)
	}
	if err := f.SetCellStyle(registerSheet, "A1", "A1", styles.title); err != nil {
		return nil, fmt.Errorf("failed to style title: %w", err)
	}

	const headerRow = 3
	for i, col := range registerColumns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetCellValue(registerSheet, fmt.Sprintf("%s%d", name, headerRow), col.title); err != nil {
			return nil, fmt.Errorf("failed to set header %s: %w", col.title, err)
		}
		if err := f.SetColWidth(registerSheet, name, name, col.width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	last, _ := excelize.ColumnNumberToName(len(registerColumns))
	if err := f.SetCellStyle(registerSheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", last, headerRow), styles.header); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	total := decimal.Zero
	for i, v := range vouchers {
		row := headerRow + 1 + i
		values := []interface{}{
			v.TicketNumber,
			string(v.Status),
			v.Company,
			v.BankName,
			v.AccountTitle,
			v.AccountNumber,
			amountOf(v),
			v.Description,
			v.CreatedByName,
			v.CreatedAt.Format(timeLayout),
			stampName(v.Checked),
			stampName(v.Initiated),
			stampName(v.Released),
			stampTime(v.Released),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(registerSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write voucher row %d: %w", row, err)
		}
		total = total.Add(decimal.NewFromFloat(v.Amount).Round(2))
	}

	totalRow := headerRow + 1 + len(vouchers)
	if err := f.SetCellValue(registerSheet, fmt.Sprintf("F%d", totalRow), "Total"); err != nil {
		return nil, fmt.Errorf("failed to set total label: %w", err)
	}
	if err := f.SetCellValue(registerSheet, fmt.Sprintf("G%d", totalRow), total.InexactFloat64()); err != nil {
		return nil, fmt.Errorf("failed to set total: %w", err)
	}
	if err := f.SetCellStyle(registerSheet, fmt.Sprintf("G%d", headerRow+1), fmt.Sprintf("G%d", totalRow), styles.amount); err != nil {
		return nil, fmt.Errorf("failed to style amounts: %w", err)
	}
	if err := f.SetCellStyle(registerSheet, fmt.Sprintf("F%d", totalRow), fmt.Sprintf("F%d", totalRow), styles.header); err != nil {
		return nil, fmt.Errorf("failed to style total label: %w", err)
	}

	if err := f.SetPanes(registerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	w.logger.Debug("Voucher register rendered",
		zap.String("title", title),
		zap.Int("voucher_count", len(vouchers)),
		zap.String("total", total.StringFixed(2)))
	return w.bytes(f)
}

func (w *ExcelWriter) newFile(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if w.font != "" {
		if err := f.SetDefaultFont(w.font); err != nil {
			w.logger.Warn("Failed to set workbook font",
				zap.String("font", w.font),
				zap.Error(err))
		}
	}
	return f, nil
}

func (w *ExcelWriter) bytes(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type workbookStyles struct {
	title  int
	header int
	amount int
}

func newStyles(f *excelize.File) (*workbookStyles, error) {
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("failed to create title style: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: numFmtAmount})
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}
	return &workbookStyles{title: title, header: header, amount: amount}, nil
}

func amountOf(v *entity.Voucher) float64 {
	return decimal.NewFromFloat(v.Amount).Round(2).InexactFloat64()
}

func stampName(s *entity.StageStamp) string {
	if s == nil {
		return ""
	}
	return s.ByName
}

func stampTime(s *entity.StageStamp) string {
	if s == nil {
		return ""
	}
	return s.At.Format(timeLayout)
}

// Verify interface compliance
var _ port.Exporter = (*ExcelWriter)(nil)
