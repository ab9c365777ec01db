package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmynk/owedup/internal/models"
)

var (
	// ErrAmountOutOfRange is returned for a stored amount beyond models.MaxAmount.
	ErrAmountOutOfRange = errors.New("amount out of range")
	// ErrTotalOverflow is returned when a total no longer fits in int64 cents.
	ErrTotalOverflow = errors.New("total overflows")
)

// Summary holds per-status totals over one snapshot of a user's expenses.
type Summary struct {
	TotalOwed  float64 // Sum of amounts the user is owed
	TotalOwe   float64 // Sum of amounts the user owes
	TotalSplit float64 // Sum of shared amounts
	Count      int
}

// Net is what the user is owed minus what they owe.
func (s Summary) Net() float64 {
	return roundCents(s.TotalOwed - s.TotalOwe)
}

// Summarize computes totals over expenses. Amounts are summed as whole cents.
// Expenses with an unknown status are counted but not summed.
func Summarize(expenses []*models.Expense) (Summary, error) {
	var s Summary
	var owed, owe, split int64
	for _, e := range expenses {
		s.Count++

		var total *int64
		switch e.Status {
		case models.StatusOwed:
			total = &owed
		case models.StatusOwe:
			total = &owe
		case models.StatusSplit:
			total = &split
		default:
			continue
		}

		c, err := toCents(e.Amount)
		if err != nil {
			return Summary{}, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		if *total, err = addCents(*total, c); err != nil {
			return Summary{}, fmt.Errorf("%s total: %w", e.Status, err)
		}
	}

	s.TotalOwed = fromCents(owed)
	s.TotalOwe = fromCents(owe)
	s.TotalSplit = fromCents(split)
	return s, nil
}

func toCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.Abs(amount) > models.MaxAmount {
		return 0, ErrAmountOutOfRange
	}
	return int64(math.Round(amount * 100)), nil
}

func addCents(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrTotalOverflow
	}
	return a + b, nil
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
