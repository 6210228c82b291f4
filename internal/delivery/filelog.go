package delivery

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/daylog/internal/domain"
)

// columns is the CSV header, in row order.
var columns = []string{
	"submitted_at", "user_id", "user_name", "start_time", "end_time",
	"knocks_total", "category", "lead_source_detail",
	"presentations_no_sale", "not_interested", "sales_count", "ap_amount",
	"carrier", "dials_made", "appointments_total", "appointments_from_dials",
	"has_cold_breakdown", "cold_knocks_total", "cold_presentations", "cold_not_interested",
	"cold_sales", "cold_ap_amount", "cold_appointments",
	"has_lead_breakdown", "lead_knocks_total", "lead_presentations", "lead_not_interested",
	"lead_sales", "lead_ap_amount", "lead_appointments",
	"idempotency_key",
}

// FileLog appends records to a CSV file.
type FileLog struct {
	path string
	mu   sync.Mutex
}

// NewFileLog creates a log writing to path. The file is created on first append.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Path returns the file location.
func (l *FileLog) Path() string {
	return l.path
}

// Append writes one row, preceded by the header if the file does not exist yet.
func (l *FileLog) Append(rec domain.DailyRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	_, statErr := os.Stat(l.path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(columns); err != nil {
			_ = f.Close()
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(row(rec)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

func row(rec domain.DailyRecord) []string {
	itoa := strconv.Itoa
	money := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	flag := strconv.FormatBool

	return []string{
		rec.SubmittedAt.UTC().Format(time.RFC3339), rec.UserID, rec.UserName, rec.StartTime, rec.EndTime,
		itoa(rec.KnocksTotal), string(rec.Category), rec.LeadSourceDetail,
		itoa(rec.PresentationsNoSale), itoa(rec.NotInterested), itoa(rec.SalesCount), money(rec.APAmount),
		rec.Carrier, itoa(rec.DialsMade), itoa(rec.AppointmentsTotal), itoa(rec.AppointmentsFromDials),
		flag(rec.HasColdBreakdown), itoa(rec.Cold.Knocks), itoa(rec.Cold.Presentations), itoa(rec.Cold.NotInterested),
		itoa(rec.Cold.Sales), money(rec.Cold.AP), itoa(rec.Cold.Appointments),
		flag(rec.HasLeadBreakdown), itoa(rec.Lead.Knocks), itoa(rec.Lead.Presentations), itoa(rec.Lead.NotInterested),
		itoa(rec.Lead.Sales), money(rec.Lead.AP), itoa(rec.Lead.Appointments),
		rec.IdempotencyKey(),
	}
}
