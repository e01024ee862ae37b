package domain

import (
	"time"
)

// AddressUnavailable is reported when the provider has no street or city tags.
const AddressUnavailable = "Address details unavailable"

// POICandidate is one feature returned by a POI provider, before ranking.
// Provider-specific tag names never appear here.
type POICandidate struct {
	Name     string   // empty when the provider has no name
	Category Category
	Location GeoPoint
	Street   string
	City     string
	Phone    string
}

// POIRecord is a ranked emergency resource near the origin.
type POIRecord struct {
	Name       string   `json:"name"`
	Category   Category `json:"type"`
	Address    string   `json:"address"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	DistanceKm float64  `json:"distance_km"`
	Phone      string   `json:"phone,omitempty"`
}

// SOSTrigger is a validated-at-the-edge SOS request.
type SOSTrigger struct {
	WorkerID      string   `json:"worker_id"`
	Location      GeoPoint `json:"location"`
	EmergencyType string   `json:"emergency_type"`
	Message       string   `json:"message,omitempty"`
}

// WorkerLocation is the origin of an SOS with its resolved address.
type WorkerLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// SOSStatus is the lifecycle marker of an SOS.
type SOSStatus string

const (
	SOSStatusActive       SOSStatus = "active"
	SOSStatusAcknowledged SOSStatus = "acknowledged"
	SOSStatusEscalated    SOSStatus = "escalated"
)

// Valid reports whether s is a known status.
func (s SOSStatus) Valid() bool {
	switch s {
	case SOSStatusActive, SOSStatusAcknowledged, SOSStatusEscalated:
		return true
	}
	return false
}

// EmergencyBundle is the complete answer to one SOS trigger.
type EmergencyBundle struct {
	SOSID             string         `json:"sos_id"`
	WorkerID          string         `json:"worker_id"`
	Timestamp         time.Time      `json:"timestamp"`
	WorkerLocation    WorkerLocation `json:"worker_location"`
	EmergencyType     string         `json:"emergency_type"`
	Message           string         `json:"message,omitempty"`
	NearestHospitals  []POIRecord    `json:"nearest_hospitals"`
	NearestPolice     []POIRecord    `json:"nearest_police"`
	NearestPharmacies []POIRecord    `json:"nearest_pharmacies"`
	EmergencyNumber   string         `json:"emergency_number"`
	Status            SOSStatus      `json:"status"`
	ProcessingTimeMs  float64        `json:"processing_time_ms"`
}

// SetCategory stores ranked records under the bundle field for c.
// Clinic results are reported alongside hospitals.
func (b *EmergencyBundle) SetCategory(c Category, records []POIRecord) {
	if records == nil {
		records = []POIRecord{}
	}
	switch c {
	case CategoryHospital, CategoryClinic:
		b.NearestHospitals = records
	case CategoryPolice:
		b.NearestPolice = records
	case CategoryPharmacy:
		b.NearestPharmacies = records
	}
}

// SOSEvent is a persisted SOS with its lifecycle state.
type SOSEvent struct {
	ID             string          `json:"id"`
	WorkerID       string          `json:"worker_id"`
	Location       GeoPoint        `json:"location"`
	EmergencyType  string          `json:"emergency_type"`
	Status         SOSStatus       `json:"status"`
	Bundle         EmergencyBundle `json:"bundle"`
	CreatedAt      time.Time       `json:"created_at"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty"`
	EscalatedAt    *time.Time      `json:"escalated_at,omitempty"`
}
