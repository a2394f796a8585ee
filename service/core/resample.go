package core

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	m "gti/data/models"
)

// Resample collapses the table to one row per week (ISO) or month, dated at the last row of
// each bucket and holding the last valid price seen in it. Daily returns the table as is.
func Resample(table m.PriceTable, frequency Frequency) m.PriceTable {
	if frequency == FrequencyDaily || frequency == "" || table.Len() == 0 {
		return table
	}

	type bucket struct {
		key  string
		last int
		rows []int
	}

	var buckets []*bucket
	for i, d := range table.Dates {
		key := bucketKey(d, frequency)
		if len(buckets) == 0 || buckets[len(buckets)-1].key != key {
			buckets = append(buckets, &bucket{key: key})
		}
		b := buckets[len(buckets)-1]
		b.rows = append(b.rows, i)
		b.last = i
	}

	dates := make([]time.Time, len(buckets))
	for j, b := range buckets {
		dates[j] = table.Dates[b.last]
	}

	res := m.NewPriceTable(dates)
	for _, symbol := range table.Symbols {
		src := table.Prices[symbol]
		col := make([]null.Float, len(buckets))
		for j, b := range buckets {
			for _, i := range b.rows {
				if src[i].Valid {
					col[j] = src[i]
				}
			}
		}
		res.Symbols = append(res.Symbols, symbol)
		res.Prices[symbol] = col
	}

	return res
}

func bucketKey(d time.Time, frequency Frequency) string {
	switch frequency {
	case FrequencyWeekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case FrequencyMonthly:
		return d.Format("2006-01")
	default:
		return d.Format(time.DateOnly)
	}
}
