package portfolio

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/fines"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/shopspring/decimal"
)

// CollectionItem is one unpaid installment on the collections worklist.
type CollectionItem struct {
	CustomerID    uuid.UUID          `json:"customer_id"`
	CustomerName  string             `json:"customer_name"`
	Phone         string             `json:"phone,omitempty"`
	Installment   models.Installment `json:"installment"`
	DaysLate      int                `json:"days_late"`
	Outstanding   decimal.Decimal    `json:"outstanding"`    // Unpaid part of the nominal amount
	AmountWithFee decimal.Decimal    `json:"amount_with_fee"` // Outstanding with fines, rounded to cents
	Fine          decimal.Decimal    `json:"fine"`
}

type Collections struct {
	Overdue  []CollectionItem `json:"overdue"`
	Today    []CollectionItem `json:"today"`
	Upcoming []CollectionItem `json:"upcoming"`
}

// Collections splits every unpaid installment into overdue, due today and
// upcoming buckets as of ref. Upcoming is limited to installments due within
// lookaheadDays; zero means no limit.
func (a *Aggregator) Collections(customers []models.Customer, ref time.Time, lookaheadDays int) Collections {
	out := Collections{
		Overdue:  []CollectionItem{},
		Today:    []CollectionItem{},
		Upcoming: []CollectionItem{},
	}

	for _, c := range customers {
		for _, inst := range c.Installments {
			if inst.Status == models.InstallmentStatusPaid {
				continue
			}
			item := a.collectionItem(c, inst, ref)

			switch classify(inst, ref) {
			case dueOverdue:
				out.Overdue = append(out.Overdue, item)
			case dueToday:
				out.Today = append(out.Today, item)
			default:
				if lookaheadDays > 0 && money.DaysBetween(ref, inst.DueDate) > lookaheadDays {
					continue
				}
				out.Upcoming = append(out.Upcoming, item)
			}
		}
	}

	// most delinquent first; upcoming soonest first
	sort.SliceStable(out.Overdue, func(i, j int) bool {
		return out.Overdue[i].Installment.DueDate.Before(out.Overdue[j].Installment.DueDate)
	})
	sort.SliceStable(out.Upcoming, func(i, j int) bool {
		return out.Upcoming[i].Installment.DueDate.Before(out.Upcoming[j].Installment.DueDate)
	})
	return out
}

func (a *Aggregator) collectionItem(c models.Customer, inst models.Installment, ref time.Time) CollectionItem {
	outstanding := inst.Unpaid()
	withFee := a.Fines.Accrue(outstanding, inst.DueDate, ref)
	return CollectionItem{
		CustomerID:    c.ID,
		CustomerName:  c.Name,
		Phone:         c.Phone,
		Installment:   inst,
		DaysLate:      fines.DaysLate(inst.DueDate, ref),
		Outstanding:   outstanding,
		AmountWithFee: money.Round(withFee),
		Fine:          money.Round(withFee.Sub(outstanding)),
	}
}
