package controllers

import (
	"net/http"
	"strings"
	"time"

	dbpkg "eamhc/db"

	"github.com/gin-gonic/gin"
)

type perDayRow struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// GET /api/emotion/dashboard/per-day
// Query params:
// - user_id (required)
// - from=YYYY-MM-DD (optional, default: today-6)
// - to=YYYY-MM-DD   (optional, default: today)
// - label (optional)
// Returns one entry per day, days without predictions included.
func GetPredictionsPerDay(c *gin.Context) {
	userID, ok := QueryUserID(c)
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondErrorCode(c, http.StatusServiceUnavailable, CodeInternal, "database not configured")
		return
	}

	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	// to is inclusive
	toExclusive := to.AddDate(0, 0, 1)

	dayExpr := "date(created_at)"
	dialect := strings.ToLower(db.Dialect().GetName())
	switch {
	case strings.Contains(dialect, "sqlite"):
		dayExpr = "strftime('%Y-%m-%d', created_at, 'localtime')"
	case strings.Contains(dialect, "postgres"):
		dayExpr = "to_char(date_trunc('day', created_at), 'YYYY-MM-DD')"
	}

	query := db.Table("predictions").
		Select(dayExpr+" as day, count(*) as count").
		Where("user_id = ?", userID).
		Where("created_at >= ? AND created_at < ?", from, toExclusive)
	if label := strings.TrimSpace(c.Query("label")); label != "" {
		query = query.Where("label = ?", label)
	}

	var rows []perDayRow
	if err := query.Group("day").Order("day asc").Scan(&rows).Error; err != nil {
		RespondErrorCode(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}

	RespondSuccess(c, gin.H{
		"from":   from.Format(dayLayout),
		"to":     to.Format(dayLayout),
		"series": fillDailySeries(from, to, rows),
	})
}

func fillDailySeries(from, to time.Time, rows []perDayRow) []perDayRow {
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		if r.Day != "" {
			counts[r.Day] = r.Count
		}
	}

	out := []perDayRow{}
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, 1) {
		key := cur.Format(dayLayout)
		out = append(out, perDayRow{Day: key, Count: counts[key]})
	}
	return out
}
