package reconcile

import (
	"math"

	"parking-service/internal/model"
)

// Summarize aggregates dashboard counters from a session set. A vehicle
// whose exit is still unverified has not left yet.
func Summarize(sessions []model.ParkingSession, totalSlots int) model.DashboardStats {
	stats := model.DashboardStats{TotalSlots: totalSlots}
	for _, s := range sessions {
		if s.Entry != nil {
			stats.TotalEntries++
		}
		if s.Exit != nil {
			stats.TotalExits++
		}
		switch s.Status {
		case model.SessionStatusActive, model.SessionStatusUnverified:
			stats.CurrentVehicles++
		}
	}

	stats.AvailableSlots = totalSlots - stats.CurrentVehicles
	if stats.AvailableSlots < 0 {
		stats.AvailableSlots = 0
	}
	if totalSlots > 0 {
		occupied := stats.CurrentVehicles
		if occupied > totalSlots {
			occupied = totalSlots
		}
		stats.OccupancyRate = math.Round(float64(occupied)/float64(totalSlots)*10000) / 100
	}
	return stats
}
