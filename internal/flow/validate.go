package flow

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind selects how a reply is validated and parsed.
type Kind int

// Step kinds.
const (
	KindText Kind = iota
	KindInteger
	KindDecimal
	KindChoice
	KindYesNo
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindChoice:
		return "choice"
	case KindYesNo:
		return "yes/no"
	default:
		return "unknown"
	}
}

var (
	integerPattern = regexp.MustCompile(`^[0-9]+$`)
	decimalPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
)

// InvalidInputError carries the guidance shown when a reply is rejected.
type InvalidInputError struct {
	Kind     Kind
	Input    string
	Guidance string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s input %q", e.Kind, e.Input)
}

func invalid(kind Kind, input, guidance string) error {
	return &InvalidInputError{Kind: kind, Input: input, Guidance: guidance}
}

// Guidance extracts the re-prompt text from a validation error.
func Guidance(err error) string {
	var ie *InvalidInputError
	if errors.As(err, &ie) {
		return ie.Guidance
	}
	return "That didn't look right, please try again."
}

// IsCancel reports whether the reply is the cancel token.
func IsCancel(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "cancel")
}

// ParseText accepts any non-empty reply.
func ParseText(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", invalid(KindText, raw, "Please type a reply (or `cancel` to stop).")
	}
	return s, nil
}

// ParseInteger accepts a non-negative whole number with optional thousands separators.
func ParseInteger(raw string) (int, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if !integerPattern.MatchString(s) {
		return 0, invalid(KindInteger, raw, "Please enter a whole number of 0 or more, like `12` or `1,200`.")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid(KindInteger, raw, "That number is too large, please enter a smaller whole number.")
	}
	return n, nil
}

// ParseDecimal accepts a non-negative amount with optional `$` and thousands separators.
func ParseDecimal(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if !decimalPattern.MatchString(s) {
		return 0, invalid(KindDecimal, raw, "Please enter an amount of 0 or more, like `250` or `1,500.75`.")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalid(KindDecimal, raw, "That amount is out of range, please try again.")
	}
	return f, nil
}

// ParseChoice matches raw against options ignoring case and returns the uppercase option.
func ParseChoice(raw string, options []string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, opt := range options {
		if strings.EqualFold(s, opt) {
			return strings.ToUpper(opt), nil
		}
	}
	return "", invalid(KindChoice, raw, "Please choose one of: "+strings.Join(options, ", ")+".")
}

// ParseYesNo maps y/yes/n/no to a boolean.
func ParseYesNo(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, invalid(KindYesNo, raw, "Please answer `yes` or `no`.")
}
