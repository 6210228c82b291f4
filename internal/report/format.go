// Package report renders completed daily records as chat messages.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ashureev/daylog/internal/domain"
)

const timestampLayout = "2006-01-02 15:04 UTC"

// Money renders an amount as dollars with thousands separators and two decimals.
func Money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// Format renders the private summary sent to the user and the condensed
// public summary for the shared channel. It has no side effects.
func Format(rec domain.DailyRecord) (private, public string) {
	return formatPrivate(rec), formatPublic(rec)
}

func formatPrivate(rec domain.DailyRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Final Activity Report for %s**\n", rec.UserName)
	fmt.Fprintf(&b, "Start: %s\n", rec.StartTime)
	fmt.Fprintf(&b, "End: %s\n", rec.EndTime)
	fmt.Fprintf(&b, "Knocks: %d\n", rec.KnocksTotal)
	fmt.Fprintf(&b, "Category: %s\n", rec.Category)
	if rec.Category.UsesLeadSource() {
		fmt.Fprintf(&b, "Lead Source: %s\n", rec.LeadSourceDetail)
	}
	fmt.Fprintf(&b, "Presentations (no sale): %d\n", rec.PresentationsNoSale)
	fmt.Fprintf(&b, "NI: %d\n", rec.NotInterested)
	fmt.Fprintf(&b, "Sales: %d\n", rec.SalesCount)
	fmt.Fprintf(&b, "AP: %s\n", Money(rec.APAmount))
	fmt.Fprintf(&b, "Carrier: %s\n", rec.Carrier)
	fmt.Fprintf(&b, "Dials: %d\n", rec.DialsMade)
	fmt.Fprintf(&b, "Appointments: %d\n", rec.AppointmentsTotal)
	fmt.Fprintf(&b, "Appointments from dials: %d\n", rec.AppointmentsFromDials)
	writeBreakdown(&b, "Cold knock breakdown", rec.HasColdBreakdown, rec.Cold)
	writeBreakdown(&b, "Lead source breakdown", rec.HasLeadBreakdown, rec.Lead)
	fmt.Fprintf(&b, "Submitted: %s", rec.SubmittedAt.UTC().Format(timestampLayout))

	return b.String()
}

func writeBreakdown(b *strings.Builder, title string, logged bool, bd domain.Breakdown) {
	if !logged {
		fmt.Fprintf(b, "%s: not logged\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	fmt.Fprintf(b, "  Knocks: %d\n", bd.Knocks)
	fmt.Fprintf(b, "  Presentations: %d\n", bd.Presentations)
	fmt.Fprintf(b, "  NI: %d\n", bd.NotInterested)
	fmt.Fprintf(b, "  Sales: %d\n", bd.Sales)
	fmt.Fprintf(b, "  AP: %s\n", Money(bd.AP))
	fmt.Fprintf(b, "  Appointments: %d\n", bd.Appointments)
}

func formatPublic(rec domain.DailyRecord) string {
	return fmt.Sprintf(
		"**%s** logged %s: Knocks %d | Sales %d | AP %s | Appointments %d | %s",
		rec.UserName,
		rec.SubmittedAt.UTC().Format(time.DateOnly),
		rec.KnocksTotal,
		rec.SalesCount,
		Money(rec.APAmount),
		rec.AppointmentsTotal,
		rec.Category,
	)
}
