package fulfillment

import (
	"sort"
	"time"
)

// UpcomingLimit caps the dashboard's upcoming-refills list.
const UpcomingLimit = 5

// Stats is the dashboard rollup. Due counts cover the current set only;
// superseded history is never counted. LowStockCount is an independent
// inventory threshold check filled in by the service.
type Stats struct {
	DueTodayCount int `json:"due_today_count"`
	DueSoonCount  int `json:"due_soon_count"`
	LowStockCount int `json:"low_stock_count"`
}

// TallyDue counts due-today and due-soon fills over an already-resolved
// current set.
func TallyDue(current []FillView, now time.Time) (dueToday, dueSoon int) {
	for _, v := range current {
		switch Classify(v.NextRefillDate, now) {
		case DueToday:
			dueToday++
		case DueSoon:
			dueSoon++
		}
	}
	return dueToday, dueSoon
}

// DueList filters a current set down to one due bucket, ordered by next
// refill date ascending. Only DueToday and DueSoon are valid filters.
func DueList(current []FillView, filter DueStatus, now time.Time) []FillView {
	out := make([]FillView, 0, len(current))
	for _, v := range current {
		if Classify(v.NextRefillDate, now) == filter {
			out = append(out, v)
		}
	}
	sortByNextRefill(out)
	return out
}

// Upcoming returns the next refills across the whole current set regardless
// of due status, ordered by next refill date ascending and capped at
// UpcomingLimit.
func Upcoming(current []FillView) []FillView {
	out := make([]FillView, len(current))
	copy(out, current)
	sortByNextRefill(out)
	if len(out) > UpcomingLimit {
		out = out[:UpcomingLimit]
	}
	return out
}

func sortByNextRefill(views []FillView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].NextRefillDate.Equal(views[j].NextRefillDate) {
			return views[i].ID < views[j].ID
		}
		return views[i].NextRefillDate.Before(views[j].NextRefillDate)
	})
}
