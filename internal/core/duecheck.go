package core

import "time"

const (
	// DueSoonDays is the date window for flagging maintenance as due soon.
	DueSoonDays = 30
	// DueSoonKM is the odometer window for flagging maintenance as due soon.
	DueSoonKM = 1000
)

// DueStatus carries the derived reminder flags for one maintenance record.
// DueSoonByDate, DueSoonByKM and Overdue are computed independently.
type DueStatus struct {
	Record        MaintenanceRecord
	DueSoonByDate bool
	DueSoonByKM   bool
	Overdue       bool
}

// CheckDue compares stored next-due thresholds against the current date and
// odometer. A record is upcoming (and included in the result) when its
// next-due date lies in the future or it carries a next-due odometer at all;
// the input order is preserved.
func CheckDue(records []MaintenanceRecord, currentOdometer int64, now time.Time) []DueStatus {
	var out []DueStatus
	dateLimit := now.AddDate(0, 0, DueSoonDays)

	for _, r := range records {
		hasKM := r.NextDueKM != nil
		upcoming := hasKM || (!r.NextDueDate.IsZero() && r.NextDueDate.After(now))
		if !upcoming {
			continue
		}

		st := DueStatus{Record: r}
		if !r.NextDueDate.IsZero() && !r.NextDueDate.After(dateLimit) {
			st.DueSoonByDate = true
		}
		if hasKM {
			switch {
			case currentOdometer >= *r.NextDueKM:
				st.Overdue = true
			case *r.NextDueKM-currentOdometer <= DueSoonKM:
				st.DueSoonByKM = true
			}
		}
		out = append(out, st)
	}
	return out
}
