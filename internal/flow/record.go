package flow

import (
	"fmt"
	"time"

	"github.com/ashureev/daylog/internal/domain"
)

// MissingFieldError is returned when a required answer was never collected.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required answer %q", e.Field)
}

type answerReader struct {
	answers map[string]any
	err     error
}

func (r *answerReader) text(field string, required bool) string {
	v, ok := r.answers[field].(string)
	if !ok && required && r.err == nil {
		r.err = &MissingFieldError{Field: field}
	}
	return v
}

func (r *answerReader) category() domain.Category {
	raw := r.text(FieldCategory, true)
	if r.err != nil {
		return ""
	}
	c, ok := domain.ParseCategory(raw)
	if !ok {
		r.err = fmt.Errorf("unknown category %q", raw)
	}
	return c
}

func (r *answerReader) integer(field string, required bool) int {
	v, ok := r.answers[field].(int)
	if !ok && required && r.err == nil {
		r.err = &MissingFieldError{Field: field}
	}
	return v
}

func (r *answerReader) decimal(field string, required bool) float64 {
	v, ok := r.answers[field].(float64)
	if !ok && required && r.err == nil {
		r.err = &MissingFieldError{Field: field}
	}
	return v
}

func (r *answerReader) flag(field string) bool {
	v, ok := r.answers[field].(bool)
	if !ok && r.err == nil {
		r.err = &MissingFieldError{Field: field}
	}
	return v
}

func (r *answerReader) breakdown(prefix string, enabled bool) domain.Breakdown {
	if !enabled {
		return domain.Breakdown{}
	}
	return domain.Breakdown{
		Knocks:        r.integer(prefix+subKnocks, true),
		Presentations: r.integer(prefix+subPresentations, true),
		NotInterested: r.integer(prefix+subNotInterested, true),
		Sales:         r.integer(prefix+subSales, true),
		AP:            r.decimal(prefix+subAP, true),
		Appointments:  r.integer(prefix+subAppointments, true),
	}
}

// BuildRecord assembles the final record from a completed answer set.
// Breakdown groups whose gate was answered "no" stay at their zero values.
func BuildRecord(userID, userName string, answers map[string]any, submittedAt time.Time) (domain.DailyRecord, error) {
	r := &answerReader{answers: answers}

	category := r.category()
	rec := domain.DailyRecord{
		UserID:                userID,
		UserName:              userName,
		StartTime:             r.text(FieldStartTime, true),
		EndTime:               r.text(FieldEndTime, true),
		KnocksTotal:           r.integer(FieldKnocksTotal, true),
		Category:              category,
		LeadSourceDetail:      r.text(FieldLeadSourceDetail, category.UsesLeadSource()),
		PresentationsNoSale:   r.integer(FieldPresentationsNoSale, true),
		NotInterested:         r.integer(FieldNotInterested, true),
		SalesCount:            r.integer(FieldSalesCount, true),
		APAmount:              r.decimal(FieldAPAmount, true),
		Carrier:               r.text(FieldCarrier, true),
		DialsMade:             r.integer(FieldDialsMade, true),
		AppointmentsTotal:     r.integer(FieldAppointmentsTotal, true),
		AppointmentsFromDials: r.integer(FieldAppointmentsFromDials, true),
		HasColdBreakdown:      r.flag(FieldHasColdBreakdown),
		HasLeadBreakdown:      r.flag(FieldHasLeadBreakdown),
		SubmittedAt:           submittedAt,
	}
	rec.Cold = r.breakdown("cold_", rec.HasColdBreakdown)
	rec.Lead = r.breakdown("lead_", rec.HasLeadBreakdown)

	if r.err != nil {
		return domain.DailyRecord{}, r.err
	}
	return rec, nil
}
