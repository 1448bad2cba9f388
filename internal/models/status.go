package models

import "errors"

var (
	// ErrMissingFields is returned when a required form field is empty.
	ErrMissingFields = errors.New("please fill in all required fields")
	// ErrInvalidField is wrapped by errors describing a malformed value.
	ErrInvalidField = errors.New("invalid field")
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
)

// MaintenanceStatus is the urgency tier of a maintenance record.
type MaintenanceStatus string

const (
	MaintenanceDanger   MaintenanceStatus = "danger" // overdue
	MaintenanceCritical MaintenanceStatus = "critical"
	MaintenanceWarning  MaintenanceStatus = "warning"
	MaintenanceNormal   MaintenanceStatus = "normal"
)

// ClassifyMaintenance maps days remaining until the next oil change to a tier.
func ClassifyMaintenance(daysRemaining int) MaintenanceStatus {
	switch {
	case daysRemaining < 0:
		return MaintenanceDanger
	case daysRemaining <= 2:
		return MaintenanceCritical
	case daysRemaining <= 10:
		return MaintenanceWarning
	default:
		return MaintenanceNormal
	}
}

// WarrantyStatus is the urgency tier of a warranty.
type WarrantyStatus string

const (
	WarrantyExpired  WarrantyStatus = "expired"
	WarrantyCritical WarrantyStatus = "critical"
	WarrantyWarning  WarrantyStatus = "warning"
	WarrantyActive   WarrantyStatus = "active"
)

// ClassifyWarranty maps days remaining until expiry to a tier.
func ClassifyWarranty(daysRemaining int) WarrantyStatus {
	switch {
	case daysRemaining < 0:
		return WarrantyExpired
	case daysRemaining <= 3:
		return WarrantyCritical
	case daysRemaining <= 10:
		return WarrantyWarning
	default:
		return WarrantyActive
	}
}

// Urgent reports whether the tier needs the shop's attention.
func (s MaintenanceStatus) Urgent() bool {
	return s == MaintenanceDanger || s == MaintenanceCritical
}

// Urgent reports whether the warranty is about to expire.
func (s WarrantyStatus) Urgent() bool {
	return s == WarrantyCritical
}
