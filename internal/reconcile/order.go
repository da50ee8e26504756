package reconcile

import (
	"sort"

	"parking-service/internal/model"
)

// SortByRecency orders sessions in place by their latest activity, newest
// first. Ties fall back to the contributing event ids so the order is the
// same on every run.
func SortByRecency(sessions []model.ParkingSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i].LastActivity(), sessions[j].LastActivity()
		if !a.Equal(b) {
			return a.After(b)
		}
		if ea, eb := sessions[i].EntrySessionID(), sessions[j].EntrySessionID(); ea != eb {
			return ea < eb
		}
		return sessions[i].ExitSessionID() < sessions[j].ExitSessionID()
	})
}
