package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eamhc/tools"

	"github.com/gin-gonic/gin"
)

func ParamID(c *gin.Context, name string) (int64, bool) {
	v := c.Param(name)
	if v == "" {
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, name+" is required")
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, name+" is invalid")
		return 0, false
	}
	return id, true
}

// QueryUserID reads the mandatory user_id query parameter.
func QueryUserID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, "user_id is required")
		return "", false
	}
	if !tools.ValidateUserID(userID) {
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, "user_id is invalid")
		return "", false
	}
	return userID, true
}

// queryInt falls back to def when key is missing or not a number.
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return def
	}
	return n
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

const (
	dayLayout     = "2006-01-02"
	defaultWindow = 7
	maxRangeDays  = 366
)

// parseDateRange reads from/to (YYYY-MM-DD, inclusive) as local midnights.
// Without them the window is the last seven days, today included.
func parseDateRange(c *gin.Context) (from, to time.Time, ok bool) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	from, to = today.AddDate(0, 0, 1-defaultWindow), today

	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &from}, {"to", &to}} {
		s := strings.TrimSpace(c.Query(p.key))
		if s == "" {
			continue
		}
		day, err := time.ParseInLocation(dayLayout, s, time.Local)
		if err != nil {
			RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, fmt.Sprintf("invalid %s (use YYYY-MM-DD)", p.key))
			return time.Time{}, time.Time{}, false
		}
		*p.dst = day
	}

	switch {
	case from.After(to):
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, "from must not be after to")
		return time.Time{}, time.Time{}, false
	case from.AddDate(0, 0, maxRangeDays-1).Before(to):
		RespondErrorCode(c, http.StatusBadRequest, CodeInvalidInput, fmt.Sprintf("range exceeds %d days", maxRangeDays))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
