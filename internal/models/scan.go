package models

import "time"

// ScanMode identifies which acquisition front-end produced a scan.
type ScanMode string

const (
	ScanModeKeyboard ScanMode = "keyboard"
	ScanModeCamera   ScanMode = "camera"
)

// Valid reports whether the mode is one of the two known acquisition modes.
func (m ScanMode) Valid() bool {
	return m == ScanModeKeyboard || m == ScanModeCamera
}

// Scan is a persisted barcode scan event.
type Scan struct {
	ID           string    `json:"id"`
	Barcode      string    `json:"barcode"`
	UserID       string    `json:"user"`
	Username     string    `json:"username"`
	UserFullName string    `json:"userFullName"`
	Mode         ScanMode  `json:"scanMode"`
	DeviceInfo   string    `json:"deviceInfo,omitempty"`
	Location     string    `json:"location,omitempty"`
	ScannedAt    time.Time `json:"scannedAt"`
}

// ScanStats summarizes a user's scanning activity.
type ScanStats struct {
	TotalScans  int    `json:"totalScans"`
	TodayScans  int    `json:"todayScans"`
	RecentScans []Scan `json:"recentScans"`
}
