package portfolio

import (
	"sort"
	"time"

	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	// DefaultTrendDays is the income trend window when none is requested.
	DefaultTrendDays = 30
	MaxTrendDays     = 366
)

// MonthlyFigures aggregates one calendar month.
type MonthlyFigures struct {
	Month     string          `json:"month"`     // yyyy-mm
	Earnings  decimal.Decimal `json:"earnings"`  // Profit-category income booked in the month
	Contracts int             `json:"contracts"` // Customers who joined in the month
	Volume    decimal.Decimal `json:"volume"`    // TotalLoaned of those customers
}

type ModalityFigures struct {
	Frequency   models.Frequency `json:"frequency"`
	Contracts   int              `json:"contracts"`
	TotalLoaned decimal.Decimal  `json:"total_loaned"`
}

type TrendPoint struct {
	Date   time.Time       `json:"date"`
	Income decimal.Decimal `json:"income"`
}

// AnalyticsReport is the performance dossier derived from the portfolio.
type AnalyticsReport struct {
	Monthly     []MonthlyFigures  `json:"monthly"`      // Newest month first
	Modalities  []ModalityFigures `json:"modalities"`   // Daily, weekly, biweekly, monthly
	IncomeTrend []TrendPoint      `json:"income_trend"` // One point per day, oldest first, ending on ref
}

var modalities = []models.Frequency{
	models.FrequencyDaily,
	models.FrequencyWeekly,
	models.FrequencyBiweekly,
	models.FrequencyMonthly,
}

// Analytics builds the monthly report, the modality breakdown and the daily
// income trend over the trendDays days ending on ref. Inputs are not modified.
func Analytics(customers []models.Customer, txs []models.Transaction, ref time.Time, trendDays int) AnalyticsReport {
	if trendDays <= 0 {
		trendDays = DefaultTrendDays
	}
	return AnalyticsReport{
		Monthly:     monthly(customers, txs),
		Modalities:  modalityBreakdown(customers),
		IncomeTrend: incomeTrend(txs, ref, trendDays),
	}
}

func monthOf(t time.Time) time.Time {
	c := money.Civil(t)
	return time.Date(c.Year(), c.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthly(customers []models.Customer, txs []models.Transaction) []MonthlyFigures {
	months := map[time.Time]*MonthlyFigures{}
	bucket := func(t time.Time) *MonthlyFigures {
		key := monthOf(t)
		m, ok := months[key]
		if !ok {
			m = &MonthlyFigures{Month: key.Format("2006-01"), Earnings: decimal.Zero, Volume: decimal.Zero}
			months[key] = m
		}
		return m
	}

	// loan recoveries open the month too, even though only profit counts as earnings
	for _, tx := range txs {
		if tx.Type != models.TransactionTypeIncome {
			continue
		}
		switch tx.Category {
		case models.CategoryProfit:
			m := bucket(tx.Date)
			m.Earnings = m.Earnings.Add(tx.Amount)
		case models.CategoryLoan:
			bucket(tx.Date)
		}
	}
	for _, c := range customers {
		m := bucket(c.JoinedDate)
		m.Contracts++
		m.Volume = m.Volume.Add(c.TotalLoaned)
	}

	keys := make([]time.Time, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].After(keys[j]) })

	out := make([]MonthlyFigures, len(keys))
	for i, k := range keys {
		out[i] = *months[k]
	}
	return out
}

func modalityBreakdown(customers []models.Customer) []ModalityFigures {
	out := make([]ModalityFigures, len(modalities))
	for i, f := range modalities {
		out[i] = ModalityFigures{Frequency: f, TotalLoaned: decimal.Zero}
	}
	for _, c := range customers {
		for i := range out {
			if out[i].Frequency == c.LoanFrequency {
				out[i].Contracts++
				out[i].TotalLoaned = out[i].TotalLoaned.Add(c.TotalLoaned)
				break
			}
		}
	}
	return out
}

func incomeTrend(txs []models.Transaction, ref time.Time, days int) []TrendPoint {
	start := money.Civil(ref).AddDate(0, 0, -(days - 1))
	out := make([]TrendPoint, days)
	for i := range out {
		out[i] = TrendPoint{Date: start.AddDate(0, 0, i), Income: decimal.Zero}
	}

	for _, tx := range txs {
		if tx.Type != models.TransactionTypeIncome {
			continue
		}
		i := int(money.Civil(tx.Date).Sub(start).Hours() / 24)
		if i < 0 || i >= days {
			continue
		}
		out[i].Income = out[i].Income.Add(tx.Amount)
	}
	return out
}
