package core

import "time"

// Standing classifies a member's payment record against the elapsed
// part of the schedule.
type Standing string

const (
	GoodStanding Standing = "GOOD_STANDING"
	Behind       Standing = "BEHIND"
)

// DerivedStanding is the computed view of one member's record. It is
// never persisted: always a pure function of the payments map and the
// reference date.
type DerivedStanding struct {
	PaidCount        int
	TotalPaid        Money
	PeriodsRemaining int
	DuePeriods       int
	Standing         Standing
	MissedPeriods    []Period
}

// DeriveStanding maps a sparse payments map and the fixed calendar into
// a standing classification. Only keys matching the calendar count:
// stale keys left over from an older schedule are ignored. Future
// periods never hurt the standing; prepaying them counts toward it.
func DeriveStanding(payments map[string]bool, calendar []Period, ref time.Time, fee Money) DerivedStanding {
	d := DerivedStanding{}
	for _, p := range calendar {
		paid := payments[p.Key()]
		if paid {
			d.PaidCount++
		}
		if p.DueBy(ref) {
			d.DuePeriods++
			if !paid {
				d.MissedPeriods = append(d.MissedPeriods, p)
			}
		}
	}
	d.TotalPaid = fee.Times(d.PaidCount)
	d.PeriodsRemaining = len(calendar) - d.PaidCount
	if d.PaidCount >= d.DuePeriods {
		d.Standing = GoodStanding
	} else {
		d.Standing = Behind
	}
	return d
}
