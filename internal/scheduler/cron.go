package scheduler

import (
	"fmt"
	"strconv"
	"strings"
)

// fmtCron renders a standard 5-field cron expression.
func fmtCron(minute, hour int, dom, month string, dow interface{}) string {
	return fmt.Sprintf("%d %d %s %s %v", minute, hour, dom, month, dow)
}

// fmtCronHours renders a single minute at a comma-joined list of hours, for
// spec.md §4.6's "4x/day at :05" tracked-task check.
func fmtCronHours(minute int, hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return fmt.Sprintf("%d %s * * *", minute, strings.Join(parts, ","))
}
