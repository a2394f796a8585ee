package core

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"

	m "gti/data/models"
)

const (
	StatusOk       = "ok"
	StatusNotFound = "not_found"
)

type ColorClass string

const (
	NegYear        ColorClass = "NEG_YEAR"
	NegMonthNoYear ColorClass = "NEG_MONTH_NO_YEAR"
	NegWeekNoMonth ColorClass = "NEG_WEEK_NO_MONTH"
	NegDayNoWeek   ColorClass = "NEG_DAY_NO_WEEK"
	AllPositive    ColorClass = "ALL_POSITIVE"
)

// MarketPerformance is the percent move of one instrument up to an as of date
type MarketPerformance struct {
	Symbol     string     `json:"symbol"`
	Status     string     `json:"status"`
	Daily      null.Float `json:"daily"`
	Weekly     null.Float `json:"weekly"`
	Monthly    null.Float `json:"monthly"`
	Yearly     null.Float `json:"yearly"`
	ColorClass ColorClass `json:"colorClass"`
}

type observation struct {
	date  time.Time
	price float64
}

// BuildPerformance reports 1 bar, 7, 30 and 365 day percent changes for every column,
// measured from the closest observation on or before each target date
func BuildPerformance(table m.PriceTable, asOf time.Time) []MarketPerformance {
	table, _ = table.FiniteOnly()
	res := make([]MarketPerformance, 0, len(table.Symbols))
	for _, symbol := range table.Symbols {
		var series []observation
		for i, p := range table.Prices[symbol] {
			if p.Valid {
				series = append(series, observation{table.Dates[i], p.Float64})
			}
		}

		perf := MarketPerformance{Symbol: symbol, Status: StatusNotFound}
		if len(series) > 0 {
			perf.Status = StatusOk
			perf.Daily = dailyChange(series, asOf)
			perf.Weekly = changeOver(series, 7, asOf)
			perf.Monthly = changeOver(series, 30, asOf)
			perf.Yearly = changeOver(series, 365, asOf)
		}
		perf.ColorClass = ClassifyColor(perf)
		res = append(res, perf)
	}
	return res
}

// ClassifyColor picks the map colour from the longest horizon that is available
func ClassifyColor(p MarketPerformance) ColorClass {
	negative := func(f null.Float) bool { return f.Valid && f.Float64 < 0 }

	switch {
	case negative(p.Yearly):
		return NegYear
	case !p.Yearly.Valid && negative(p.Monthly):
		return NegMonthNoYear
	case !p.Monthly.Valid && negative(p.Weekly):
		return NegWeekNoMonth
	case !p.Weekly.Valid && negative(p.Daily):
		return NegDayNoWeek
	default:
		return AllPositive
	}
}

// closestPrior is the index of the last observation on or before target, -1 if none
func closestPrior(series []observation, target time.Time) int {
	return sort.Search(len(series), func(i int) bool { return series[i].date.After(target) }) - 1
}

func changeOver(series []observation, days int, asOf time.Time) null.Float {
	end := closestPrior(series, asOf)
	if end < 0 {
		return null.Float{}
	}
	start := closestPrior(series, asOf.AddDate(0, 0, -days))
	if start < 0 {
		return null.Float{}
	}
	return percentMove(series[start].price, series[end].price)
}

func dailyChange(series []observation, asOf time.Time) null.Float {
	end := closestPrior(series, asOf)
	if end < 1 {
		return null.Float{}
	}
	return percentMove(series[end-1].price, series[end].price)
}

func percentMove(from, to float64) null.Float {
	if from == 0 {
		return null.Float{}
	}
	return null.FloatFrom((to - from) / from * 100)
}
