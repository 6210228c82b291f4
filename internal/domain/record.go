// Package domain contains core domain types for the daylog bot.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category classifies where the day's knocks came from.
type Category string

// Known categories. Values are stored uppercase.
const (
	CategoryCodeNOx    Category = "CODENOX"
	CategoryLeadSource Category = "LEADSOURCE"
	CategoryColdKnock  Category = "COLDKNOCK"
	CategoryMixed      Category = "MIXED"
)

// Categories lists the accepted categories in prompt order.
var Categories = []Category{CategoryCodeNOx, CategoryLeadSource, CategoryColdKnock, CategoryMixed}

// ParseCategory matches s against the known categories ignoring case.
func ParseCategory(s string) (Category, bool) {
	up := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range Categories {
		if c == up {
			return c, true
		}
	}
	return "", false
}

// UsesLeadSource reports whether the category involves purchased or assigned leads.
func (c Category) UsesLeadSource() bool {
	return c == CategoryLeadSource || c == CategoryMixed
}

// Breakdown holds the per-source sub-totals collected by the optional blocks.
type Breakdown struct {
	Knocks        int     `json:"knocks_total"`
	Presentations int     `json:"presentations"`
	NotInterested int     `json:"not_interested"`
	Sales         int     `json:"sales"`
	AP            float64 `json:"ap_amount"`
	Appointments  int     `json:"appointments"`
}

// DailyRecord is a finished activity log for one user and one day.
// It is built once when a flow completes and never mutated afterwards.
type DailyRecord struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`

	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`

	KnocksTotal           int      `json:"knocks_total"`
	Category              Category `json:"category"`
	LeadSourceDetail      string   `json:"lead_source_detail"`
	PresentationsNoSale   int      `json:"presentations_no_sale"`
	NotInterested         int      `json:"not_interested"`
	SalesCount            int      `json:"sales_count"`
	APAmount              float64  `json:"ap_amount"`
	Carrier               string   `json:"carrier"`
	DialsMade             int      `json:"dials_made"`
	AppointmentsTotal     int      `json:"appointments_total"`
	AppointmentsFromDials int      `json:"appointments_from_dials"`

	HasColdBreakdown bool      `json:"has_cold_breakdown"`
	Cold             Breakdown `json:"-"`
	HasLeadBreakdown bool      `json:"has_lead_breakdown"`
	Lead             Breakdown `json:"-"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// IdempotencyToken is the raw user/completion-time token receivers can dedupe on.
func (r DailyRecord) IdempotencyToken() string {
	return fmt.Sprintf("%s-%d", r.UserID, r.SubmittedAt.Unix())
}

// IdempotencyKey derives a stable UUID from the user and completion timestamp.
func (r DailyRecord) IdempotencyKey() string {
	name := fmt.Sprintf("%s:%d", r.UserID, r.SubmittedAt.UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Fields flattens the record into wire field names. Breakdown groups are
// emitted with cold_ and lead_ prefixes so the payload stays one level deep.
func (r DailyRecord) Fields() map[string]any {
	return map[string]any{
		"user_id":                 r.UserID,
		"user_name":               r.UserName,
		"start_time":              r.StartTime,
		"end_time":                r.EndTime,
		"knocks_total":            r.KnocksTotal,
		"category":                string(r.Category),
		"lead_source_detail":      r.LeadSourceDetail,
		"presentations_no_sale":   r.PresentationsNoSale,
		"not_interested":          r.NotInterested,
		"sales_count":             r.SalesCount,
		"ap_amount":               r.APAmount,
		"carrier":                 r.Carrier,
		"dials_made":              r.DialsMade,
		"appointments_total":      r.AppointmentsTotal,
		"appointments_from_dials": r.AppointmentsFromDials,
		"has_cold_breakdown":      r.HasColdBreakdown,
		"cold_knocks_total":       r.Cold.Knocks,
		"cold_presentations":      r.Cold.Presentations,
		"cold_not_interested":     r.Cold.NotInterested,
		"cold_sales":              r.Cold.Sales,
		"cold_ap_amount":          r.Cold.AP,
		"cold_appointments":       r.Cold.Appointments,
		"has_lead_breakdown":      r.HasLeadBreakdown,
		"lead_knocks_total":       r.Lead.Knocks,
		"lead_presentations":      r.Lead.Presentations,
		"lead_not_interested":     r.Lead.NotInterested,
		"lead_sales":              r.Lead.Sales,
		"lead_ap_amount":          r.Lead.AP,
		"lead_appointments":       r.Lead.Appointments,
		"submitted_at":            r.SubmittedAt.UTC().Format(time.RFC3339),
	}
}
