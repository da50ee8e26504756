package model

import "time"

const SettingTotalSlots = "total_slots"

type ParkingSetting struct {
	Key       string    `gorm:"type:varchar(64);primaryKey" json:"key"`
	IntValue  int       `gorm:"not null;default:0" json:"int_value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ParkingSetting) TableName() string {
	return "parking_settings"
}

type DashboardStats struct {
	CurrentVehicles int     `json:"current_vehicles"`
	TotalEntries    int     `json:"total_entries"`
	TotalExits      int     `json:"total_exits"`
	AvailableSlots  int     `json:"available_slots"`
	TotalSlots      int     `json:"total_slots"`
	OccupancyRate   float64 `json:"occupancy_rate"`
}
