package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultMaintenanceInterval is the number of days between oil changes.
const DefaultMaintenanceInterval = 29

// MaxPeriodDays bounds warranty lengths and maintenance intervals.
const MaxPeriodDays = 36500

// MaintenanceRecord represents one scheduled oil change.
type MaintenanceRecord struct {
	ID          RecordID `json:"id"`
	ClientName  string   `json:"clientName"`
	Vehicle     string   `json:"vehicle"`
	Odometer    int      `json:"odometer"` // in kilometers
	ServiceDate Date     `json:"serviceDate"`
	NextDueDate Date     `json:"nextDueDate"`
	Phone       string   `json:"phone"`
	Address     string   `json:"address"`
	Notified    bool     `json:"notified"`
	CreatedAt   Date     `json:"createdAt"`
}

// MaintenanceInput carries the raw values of the maintenance entry form.
type MaintenanceInput struct {
	ClientName  string `json:"clientName"`
	Vehicle     string `json:"vehicle"`
	Odometer    string `json:"odometer"`
	ServiceDate string `json:"serviceDate"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// Trim strips surrounding whitespace from every field.
func (in MaintenanceInput) Trim() MaintenanceInput {
	return MaintenanceInput{
		ClientName:  strings.TrimSpace(in.ClientName),
		Vehicle:     strings.TrimSpace(in.Vehicle),
		Odometer:    strings.TrimSpace(in.Odometer),
		ServiceDate: strings.TrimSpace(in.ServiceDate),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
	}
}

// Validate checks required fields and parses the typed values.
func (in MaintenanceInput) Validate() (odometer int, serviceDate Date, err error) {
	in = in.Trim()
	if in.ClientName == "" || in.Vehicle == "" || in.Odometer == "" || in.ServiceDate == "" {
		return 0, Date{}, ErrMissingFields
	}
	odometer, err = strconv.Atoi(in.Odometer)
	if err != nil || odometer < 0 {
		return 0, Date{}, fmt.Errorf("%w: odometer must be a non-negative whole number", ErrInvalidField)
	}
	serviceDate, err = ParseDate(in.ServiceDate)
	if err != nil {
		return 0, Date{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	return odometer, serviceDate, nil
}

// NextDue returns the next oil change date for a service performed on d.
func NextDue(d Date, intervalDays int) Date {
	return d.AddDays(intervalDays)
}

// NewMaintenanceRecord builds a record from a validated input.
func NewMaintenanceRecord(in MaintenanceInput, intervalDays int, now time.Time) (MaintenanceRecord, error) {
	odometer, serviceDate, err := in.Validate()
	if err != nil {
		return MaintenanceRecord{}, err
	}
	next := NextDue(serviceDate, intervalDays)
	if next.After(MaxDate) {
		return MaintenanceRecord{}, fmt.Errorf("%w: next oil change would fall after %s", ErrInvalidField, MaxDate)
	}
	in = in.Trim()
	return MaintenanceRecord{
		ID:          NewRecordID(),
		ClientName:  in.ClientName,
		Vehicle:     in.Vehicle,
		Odometer:    odometer,
		ServiceDate: serviceDate,
		NextDueDate: next,
		Phone:       in.Phone,
		Address:     in.Address,
		CreatedAt:   DateOf(now),
	}, nil
}
