package schedule

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestGenerate_RateScenario(t *testing.T) {
	plan, err := Generate(Terms{
		Principal:    d("1000"),
		Mode:         ModeRate,
		Rate:         d("10"),
		Count:        10,
		Frequency:    models.FrequencyMonthly,
		FirstDueDate: date(2024, time.January, 1),
	})
	require.NoError(t, err)

	assert.True(t, plan.TotalToPay.Equal(d("1100")), "total %s", plan.TotalToPay)
	assert.True(t, plan.InstallmentAmount.Equal(d("110")), "installment %s", plan.InstallmentAmount)
	assert.True(t, plan.BalanceDue.Equal(d("1100")), "balance %s", plan.BalanceDue)
	assert.Equal(t, models.CustomerStatusActive, plan.InitialStatus())
	require.Len(t, plan.Installments, 10)

	for i, inst := range plan.Installments {
		assert.Equal(t, i+1, inst.Number)
		assert.True(t, inst.Amount.Equal(d("110")))
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
		assert.Equal(t, date(2024, time.Month(i+1), 1), inst.DueDate)
	}
}

func TestGenerate_SumInvariant(t *testing.T) {
	tolerance := d("0.01")

	for _, principal := range []string{"1000", "1000.03", "777.77", "15000"} {
		for _, rate := range []string{"0", "10", "33.3333", "7.5"} {
			for _, count := range []int{1, 3, 7, 12, 30} {
				name := fmt.Sprintf("%s@%s%%x%d", principal, rate, count)
				t.Run(name, func(t *testing.T) {
					plan, err := Generate(Terms{
						Principal:    d(principal),
						Mode:         ModeRate,
						Rate:         d(rate),
						Count:        count,
						Frequency:    models.FrequencyWeekly,
						FirstDueDate: date(2024, time.March, 10),
					})
					require.NoError(t, err)

					want := d(principal).Mul(decimal.NewFromInt(1).Add(d(rate).Div(decimal.NewFromInt(100))))
					assert.True(t, plan.TotalToPay.Equal(want), "total %s want %s", plan.TotalToPay, want)

					sum := decimal.Zero
					for _, inst := range plan.Installments {
						assert.False(t, inst.Amount.IsNegative())
						sum = sum.Add(inst.Amount)
					}
					assert.True(t, sum.Sub(plan.TotalToPay).Abs().LessThanOrEqual(tolerance),
						"sum %s total %s", sum, plan.TotalToPay)
					assert.True(t, plan.BalanceDue.Equal(sum))
				})
			}
		}
	}
}

func TestGenerate_MonthlyRolloverFromMonthEnd(t *testing.T) {
	plan, err := Generate(Terms{
		Principal:    d("1200"),
		Mode:         ModeRate,
		Rate:         d("0"),
		Count:        12,
		Frequency:    models.FrequencyMonthly,
		FirstDueDate: date(2024, time.January, 31),
	})
	require.NoError(t, err)

	for i, inst := range plan.Installments {
		// one installment per calendar month, never skipping one
		assert.Equal(t, time.Month(i+1), inst.DueDate.Month(), "installment %d due %s", inst.Number, inst.DueDate)
		assert.Equal(t, 2024, inst.DueDate.Year())
	}
	assert.Equal(t, 29, plan.Installments[1].DueDate.Day())
	assert.Equal(t, 31, plan.Installments[2].DueDate.Day())
	assert.Equal(t, 30, plan.Installments[3].DueDate.Day())
}

func TestGenerate_FixedInstallment(t *testing.T) {
	plan, err := Generate(Terms{
		Principal:         d("1000"),
		Mode:              ModeFixedInstallment,
		InstallmentAmount: d("150"),
		Count:             8,
		AlreadyPaid:       2,
		Frequency:         models.FrequencyBiweekly,
		FirstDueDate:      date(2024, time.February, 1),
	})
	require.NoError(t, err)

	assert.True(t, plan.TotalToPay.Equal(d("1200")))
	assert.True(t, plan.BalanceDue.Equal(d("900")), "balance %s", plan.BalanceDue)
	assert.True(t, plan.EffectiveRate.Equal(d("20")), "rate %s", plan.EffectiveRate)
	assert.Equal(t, models.InstallmentStatusPaid, plan.Installments[0].Status)
	assert.Equal(t, models.InstallmentStatusPaid, plan.Installments[1].Status)
	assert.Equal(t, models.InstallmentStatusPending, plan.Installments[2].Status)
	assert.Equal(t, date(2024, time.February, 16), plan.Installments[1].DueDate)
}

func TestGenerate_AllAlreadyPaidStartsPaid(t *testing.T) {
	plan, err := Generate(Terms{
		Principal:    d("300"),
		Mode:         ModeRate,
		Rate:         d("0"),
		Count:        3,
		AlreadyPaid:  3,
		Frequency:    models.FrequencyDaily,
		FirstDueDate: date(2024, time.February, 1),
	})
	require.NoError(t, err)
	assert.True(t, plan.BalanceDue.IsZero())
	assert.Equal(t, models.CustomerStatusPaid, plan.InitialStatus())
}

func TestGenerate_FirstNumber(t *testing.T) {
	plan, err := Generate(Terms{
		Principal:    d("100"),
		Mode:         ModeRate,
		Count:        2,
		Frequency:    models.FrequencyDaily,
		FirstDueDate: date(2024, time.February, 1),
		FirstNumber:  11,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, plan.Installments[0].Number)
	assert.Equal(t, 12, plan.Installments[1].Number)
}

func TestGenerate_InvalidTerms(t *testing.T) {
	valid := Terms{
		Principal:    d("1000"),
		Mode:         ModeRate,
		Rate:         d("10"),
		Count:        10,
		Frequency:    models.FrequencyMonthly,
		FirstDueDate: date(2024, time.January, 1),
	}

	cases := map[string]func(*Terms){
		"count":          func(t *Terms) { t.Count = 0 },
		"negative count": func(t *Terms) { t.Count = -4 },
		"principal":      func(t *Terms) { t.Principal = decimal.Zero },
		"rate":           func(t *Terms) { t.Rate = d("-1") },
		"fixed amount":   func(t *Terms) { t.Mode = ModeFixedInstallment },
		"already paid":   func(t *Terms) { t.AlreadyPaid = 11 },
		"due date":       func(t *Terms) { t.FirstDueDate = time.Time{} },
		"frequency":      func(t *Terms) { t.Frequency = "yearly" },
		"mode":           func(t *Terms) { t.Mode = "annuity" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			terms := valid
			mutate(&terms)

			plan, err := Generate(terms)
			assert.Nil(t, plan)

			var termErr *InvalidTermError
			require.True(t, errors.As(err, &termErr), "got %v", err)
		})
	}
}
