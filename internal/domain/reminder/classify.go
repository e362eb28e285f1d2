package reminder

import "time"

// Classification thresholds. Comparisons are inclusive.
const (
	OneHourThreshold         = time.Hour
	FourHoursThreshold       = 4 * time.Hour
	TwentyFourHoursThreshold = 24 * time.Hour
)

// Classify maps the signed time remaining until a task is due onto a reminder
// type. Overdue tasks and tasks further out than a day both fall back to
// TypeTwentyFourHours.
func Classify(timeUntilDue time.Duration) Type {
	switch {
	case timeUntilDue < 0:
		return TypeTwentyFourHours
	case timeUntilDue <= OneHourThreshold:
		return TypeOneHour
	case timeUntilDue <= FourHoursThreshold:
		return TypeFourHours
	default:
		return TypeTwentyFourHours
	}
}
