// Package commission summarizes school commissions and settles them.
package commission

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/stationery-pos/internal/backoffice"
)

const (
	StatusPending = "pending"
	StatusSettled = "settled"
)

// Row is a commission with its school name resolved.
type Row struct {
	backoffice.Commission
	SchoolID   string `json:"schoolId"`
	SchoolName string `json:"schoolName"`
}

// Rows resolves school names from populated references or schools.
func Rows(list []backoffice.Commission, schools []backoffice.School) []Row {
	names := make(map[string]string, len(schools))
	for _, s := range schools {
		names[s.ID] = s.Name
	}
	rows := make([]Row, 0, len(list))
	for _, c := range list {
		row := Row{Commission: c, SchoolID: c.School.ID, SchoolName: names[c.School.ID]}
		if c.School.Populated() {
			row.SchoolName = c.School.Doc.Name
		}
		if row.Status == "" {
			row.Status = StatusPending
		}
		rows = append(rows, row)
	}
	return rows
}

// SchoolTotal is the commission earned by one school.
type SchoolTotal struct {
	SchoolID   string          `json:"schoolId"`
	SchoolName string          `json:"schoolName"`
	Total      decimal.Decimal `json:"total"`
}

// MonthTotal splits one month's commission by status.
type MonthTotal struct {
	Month   string          `json:"month"`
	Pending decimal.Decimal `json:"pending"`
	Settled decimal.Decimal `json:"settled"`
}

// Summary aggregates a commission list.
type Summary struct {
	Total        decimal.Decimal `json:"total"`
	Pending      decimal.Decimal `json:"pending"`
	Settled      decimal.Decimal `json:"settled"`
	PendingCount int             `json:"pendingCount"`
	SettledCount int             `json:"settledCount"`
	AverageRate  decimal.Decimal `json:"averageRate"`
	BySchool     []SchoolTotal   `json:"bySchool"`
	Monthly      []MonthTotal    `json:"monthly"`
}

// Summarize totals rows. BySchool covers active schools with a non-zero
// total, largest first; Monthly keeps the order months first appear in.
func Summarize(rows []Row, schools []backoffice.School) Summary {
	sum := Summary{
		Total:       decimal.Zero,
		Pending:     decimal.Zero,
		Settled:     decimal.Zero,
		AverageRate: decimal.Zero,
		BySchool:    []SchoolTotal{},
		Monthly:     []MonthTotal{},
	}
	rateSum := decimal.Zero
	months := map[string]int{}
	perSchool := map[string]decimal.Decimal{}
	for _, r := range rows {
		amount := backoffice.Money(r.CommissionAmount)
		sum.Total = sum.Total.Add(amount)
		rateSum = rateSum.Add(backoffice.Money(r.CommissionRate))
		perSchool[r.SchoolID] = perSchool[r.SchoolID].Add(amount)

		i, ok := months[r.Month]
		if !ok {
			i = len(sum.Monthly)
			months[r.Month] = i
			sum.Monthly = append(sum.Monthly, MonthTotal{Month: r.Month, Pending: decimal.Zero, Settled: decimal.Zero})
		}
		if r.Status == StatusSettled {
			sum.Settled = sum.Settled.Add(amount)
			sum.SettledCount++
			sum.Monthly[i].Settled = sum.Monthly[i].Settled.Add(amount)
		} else {
			sum.Pending = sum.Pending.Add(amount)
			sum.PendingCount++
			sum.Monthly[i].Pending = sum.Monthly[i].Pending.Add(amount)
		}
	}
	if len(rows) > 0 {
		sum.AverageRate = rateSum.Div(decimal.NewFromInt(int64(len(rows)))).Round(1)
	}
	for _, s := range schools {
		total := perSchool[s.ID]
		if !s.IsActive || !total.IsPositive() {
			continue
		}
		sum.BySchool = append(sum.BySchool, SchoolTotal{SchoolID: s.ID, SchoolName: s.Name, Total: total})
	}
	slices.SortStableFunc(sum.BySchool, func(a, b SchoolTotal) int { return b.Total.Cmp(a.Total) })
	return sum
}

// Months lists distinct months in order of first appearance.
func Months(rows []Row) []string {
	out := make([]string, 0)
	for _, r := range rows {
		if r.Month != "" && !slices.Contains(out, r.Month) {
			out = append(out, r.Month)
		}
	}
	return out
}

// Filter narrows commission rows. Empty fields and "all" match everything.
type Filter struct {
	Search string
	Status string
	Month  string
}

// Apply returns matching rows in their original order.
func (f Filter) Apply(rows []Row) []Row {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if q != "" && !strings.Contains(strings.ToLower(r.SchoolName), q) {
			continue
		}
		if !isAll(f.Status) && r.Status != f.Status {
			continue
		}
		if !isAll(f.Month) && r.Month != f.Month {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isAll(v string) bool {
	return cmp.Or(v, "all") == "all"
}
