package models

import (
	"time"
)

// HelmetStatus represents the reported operational state of a helmet
type HelmetStatus string

const (
	HelmetActive   HelmetStatus = "active"
	HelmetInactive HelmetStatus = "inactive"
	HelmetUnknown  HelmetStatus = "unknown"
)

// Battery holds the battery reading attached to a telemetry payload
type Battery struct {
	Percentage float64 `json:"percentage"`
}

// GeoPoint is a GPS position reported by a helmet
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SensorSnapshot is one periodic reading bundle from a helmet. A new snapshot
// replaces the previous one wholesale so readings from different sample times
// never mix.
type SensorSnapshot struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %RH
	GasLevel    float64 `json:"gasLevel"`    // ppm
	HeartRate   float64 `json:"heartRate"`   // BPM
	Oxygen      float64 `json:"oxygen"`      // %
	Impact      bool    `json:"impact"`
	Battery     Battery `json:"battery"`
	Status      string  `json:"status,omitempty"`
}

// CrackSeverity classifies a structural crack detection
type CrackSeverity string

const (
	CrackLow      CrackSeverity = "low"
	CrackMedium   CrackSeverity = "medium"
	CrackHigh     CrackSeverity = "high"
	CrackCritical CrackSeverity = "critical"
)

// CrackEvent is a single structural crack detection reported by a helmet.
// Crack events are append-only per helmet.
type CrackEvent struct {
	Severity  CrackSeverity `json:"severity"`
	Location  string        `json:"location,omitempty"`
	Length    float64       `json:"length,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Image     string        `json:"image,omitempty"`
}

// HelmetDevice is the last-known state of one helmet. HelmetID is immutable
// after creation; the remaining fields are merged per update so a partial
// update cannot erase unrelated fields. Sensors stays nil until the first
// telemetry arrives.
type HelmetDevice struct {
	HelmetID    string          `json:"helmetId"`
	Status      HelmetStatus    `json:"status"`
	Sensors     *SensorSnapshot `json:"sensors,omitempty"`
	Location    *GeoPoint       `json:"location,omitempty"`
	Cracks      []CrackEvent    `json:"cracks,omitempty"`
	LastUpdated time.Time       `json:"lastUpdated"`
	LastSeen    time.Time       `json:"lastSeen"`
}
