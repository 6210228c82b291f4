package flow

import (
	"fmt"

	"github.com/ashureev/daylog/internal/domain"
)

// Answer field names. They double as the keys of Session.Answers.
const (
	FieldStartTime             = "start_time"
	FieldEndTime               = "end_time"
	FieldKnocksTotal           = "knocks_total"
	FieldCategory              = "category"
	FieldLeadSourceDetail      = "lead_source_detail"
	FieldPresentationsNoSale   = "presentations_no_sale"
	FieldNotInterested         = "not_interested"
	FieldSalesCount            = "sales_count"
	FieldAPAmount              = "ap_amount"
	FieldCarrier               = "carrier"
	FieldDialsMade             = "dials_made"
	FieldAppointmentsTotal     = "appointments_total"
	FieldAppointmentsFromDials = "appointments_from_dials"
	FieldHasColdBreakdown      = "has_cold_breakdown"
	FieldHasLeadBreakdown      = "has_lead_breakdown"
)

// Breakdown sub-field suffixes, prefixed with "cold_" or "lead_".
const (
	subKnocks        = "knocks_total"
	subPresentations = "presentations"
	subNotInterested = "not_interested"
	subSales         = "sales"
	subAP            = "ap_amount"
	subAppointments  = "appointments"
)

// Step is one question in the script.
type Step struct {
	Field   string
	Prompt  string
	Kind    Kind
	Options []string
	// When gates the step on earlier answers. Nil means always asked.
	When func(answers map[string]any) bool
}

// Enabled reports whether the step should be asked given the answers so far.
func (s Step) Enabled(answers map[string]any) bool {
	return s.When == nil || s.When(answers)
}

// Parse validates raw according to the step kind.
func (s Step) Parse(raw string) (any, error) {
	switch s.Kind {
	case KindInteger:
		return ParseInteger(raw)
	case KindDecimal:
		return ParseDecimal(raw)
	case KindChoice:
		return ParseChoice(raw, s.Options)
	case KindYesNo:
		return ParseYesNo(raw)
	default:
		return ParseText(raw)
	}
}

func categoryUsesLeadSource(answers map[string]any) bool {
	raw, _ := answers[FieldCategory].(string)
	c, ok := domain.ParseCategory(raw)
	return ok && c.UsesLeadSource()
}

func gateOpen(field string) func(map[string]any) bool {
	return func(answers map[string]any) bool {
		open, _ := answers[field].(bool)
		return open
	}
}

func breakdownSteps(prefix, label, gate string) []Step {
	when := gateOpen(gate)
	return []Step{
		{Field: prefix + subKnocks, Kind: KindInteger, When: when,
			Prompt: fmt.Sprintf("%s: how many **knocks**?", label)},
		{Field: prefix + subPresentations, Kind: KindInteger, When: when,
			Prompt: fmt.Sprintf("%s: how many **presentations**?", label)},
		{Field: prefix + subNotInterested, Kind: KindInteger, When: when,
			Prompt: fmt.Sprintf("%s: how many were **not interested**?", label)},
		{Field: prefix + subSales, Kind: KindInteger, When: when,
			Prompt: fmt.Sprintf("%s: how many **sales**?", label)},
		{Field: prefix + subAP, Kind: KindDecimal, When: when,
			Prompt: fmt.Sprintf("%s: how much **AP** (annual premium)?", label)},
		{Field: prefix + subAppointments, Kind: KindInteger, When: when,
			Prompt: fmt.Sprintf("%s: how many **appointments** booked?", label)},
	}
}

// Script returns the daily activity questions in the order they are asked.
func Script() []Step {
	categories := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		categories[i] = string(c)
	}

	steps := []Step{
		{Field: FieldStartTime, Kind: KindText, Prompt: "What time did you **start** today? (e.g. `9:00 AM`)"},
		{Field: FieldEndTime, Kind: KindText, Prompt: "What time did you **finish**? (e.g. `5:30 PM`)"},
		{Field: FieldKnocksTotal, Kind: KindInteger, Prompt: "How many **doors did you knock** in total?"},
		{Field: FieldCategory, Kind: KindChoice, Options: categories,
			Prompt: "What kind of knocks were they? One of: `CodeNOx`, `LeadSource`, `ColdKnock`, `Mixed`."},
		{Field: FieldLeadSourceDetail, Kind: KindText, When: categoryUsesLeadSource,
			Prompt: "Which **lead source** did you work?"},
		{Field: FieldPresentationsNoSale, Kind: KindInteger, Prompt: "How many **presentations** did not close?"},
		{Field: FieldNotInterested, Kind: KindInteger, Prompt: "How many were **not interested (NI)**?"},
		{Field: FieldSalesCount, Kind: KindInteger, Prompt: "How many **sales** did you make?"},
		{Field: FieldAPAmount, Kind: KindDecimal, Prompt: "What was your total **AP** (annual premium) today?"},
		{Field: FieldCarrier, Kind: KindText, Prompt: "Which **carrier** did you write with?"},
		{Field: FieldDialsMade, Kind: KindInteger, Prompt: "How many **dials** did you make?"},
		{Field: FieldAppointmentsTotal, Kind: KindInteger, Prompt: "How many **appointments** did you book in total?"},
		{Field: FieldAppointmentsFromDials, Kind: KindInteger, Prompt: "How many of those appointments came **from dials**?"},
		{Field: FieldHasColdBreakdown, Kind: KindYesNo, Prompt: "Do you want to log a **cold knock breakdown**? (yes/no)"},
	}
	steps = append(steps, breakdownSteps("cold_", "Cold knocks", FieldHasColdBreakdown)...)
	steps = append(steps, Step{
		Field: FieldHasLeadBreakdown, Kind: KindYesNo,
		Prompt: "Do you want to log a **lead source breakdown**? (yes/no)",
	})
	steps = append(steps, breakdownSteps("lead_", "Lead knocks", FieldHasLeadBreakdown)...)
	return steps
}
