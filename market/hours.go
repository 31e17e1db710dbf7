package market

import "time"

// NSE and BSE share the same trading session.
const (
	marketOpenMinute  = 9*60 + 15
	marketCloseMinute = 15*60 + 30
)

var istLocation = loadIST()

func loadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// stripped-down containers may lack tzdata, IST has no DST to miss
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// IsMarketOpen reports whether the Indian exchanges are trading at t:
// Monday to Friday, 09:15 until 15:30 IST. Exchange holidays are not
// tracked, quotes outside the session are simply the last close.
func IsMarketOpen(t time.Time) bool {
	ist := t.In(istLocation)
	switch ist.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minute := ist.Hour()*60 + ist.Minute()
	return minute >= marketOpenMinute && minute < marketCloseMinute
}
