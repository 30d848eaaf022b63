package feed

import (
	"math"
	"strconv"
	"time"
)

const day = 24 * time.Hour

// FormatViews renders a view count the way feed cards show it: millions with
// one decimal, thousands as a whole number, smaller counts verbatim. Halves
// round up at both scales, so 1,250,000 is "1.3М" and 2,500 is "3К".
func FormatViews(views int64) string {
	switch {
	case views >= 1_000_000:
		return strconv.FormatFloat(math.Round(float64(views)/100_000)/10, 'f', 1, 64) + "М"
	case views >= 1_000:
		return strconv.FormatInt(int64(math.Round(float64(views)/1_000)), 10) + "К"
	default:
		return strconv.FormatInt(views, 10)
	}
}

// FormatAge describes how long ago created was relative to now. Callers pass
// one now per render pass so every card agrees.
func FormatAge(created, now time.Time) string {
	days := int64(0)
	if elapsed := now.Sub(created); elapsed > 0 {
		days = int64(elapsed / day)
	}

	switch {
	case days == 0:
		return "сегодня"
	case days == 1:
		return "вчера"
	case days < 7:
		return strconv.FormatInt(days, 10) + " дней назад"
	case days < 30:
		return strconv.FormatInt(days/7, 10) + " недель назад"
	default:
		return strconv.FormatInt(days/30, 10) + " месяцев назад"
	}
}
