package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// WarrantyRecord represents a service warranty issued to a client.
type WarrantyRecord struct {
	ID           RecordID `json:"id"`
	ClientName   string   `json:"clientName"`
	Vehicle      string   `json:"vehicle"`
	Phone        string   `json:"phone"`
	ServiceDate  Date     `json:"serviceDate"`
	WarrantyDays int      `json:"warrantyDays"`
	ExpiryDate   Date     `json:"expiryDate"`
	Service      string   `json:"service"`
	Value        float64  `json:"value"`
	CreatedAt    Date     `json:"createdAt"`
}

// WarrantyInput carries the raw values of the warranty entry form.
type WarrantyInput struct {
	ClientName   string `json:"clientName"`
	Vehicle      string `json:"vehicle"`
	Phone        string `json:"phone"`
	ServiceDate  string `json:"serviceDate"`
	WarrantyDays string `json:"warrantyDays"`
	Service      string `json:"service"`
	Value        string `json:"value"`
}

// Trim strips surrounding whitespace from every field.
func (in WarrantyInput) Trim() WarrantyInput {
	return WarrantyInput{
		ClientName:   strings.TrimSpace(in.ClientName),
		Vehicle:      strings.TrimSpace(in.Vehicle),
		Phone:        strings.TrimSpace(in.Phone),
		ServiceDate:  strings.TrimSpace(in.ServiceDate),
		WarrantyDays: strings.TrimSpace(in.WarrantyDays),
		Service:      strings.TrimSpace(in.Service),
		Value:        strings.TrimSpace(in.Value),
	}
}

// ParsedWarranty holds the typed values of a validated WarrantyInput.
type ParsedWarranty struct {
	ServiceDate Date
	Days        int
	Value       float64
}

// Validate checks required fields and parses the typed values.
func (in WarrantyInput) Validate() (ParsedWarranty, error) {
	in = in.Trim()
	if in.ClientName == "" || in.Vehicle == "" || in.ServiceDate == "" ||
		in.WarrantyDays == "" || in.Service == "" || in.Value == "" {
		return ParsedWarranty{}, ErrMissingFields
	}
	serviceDate, err := ParseDate(in.ServiceDate)
	if err != nil {
		return ParsedWarranty{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	days, err := strconv.Atoi(in.WarrantyDays)
	if err != nil || days <= 0 || days > MaxPeriodDays {
		return ParsedWarranty{}, fmt.Errorf("%w: warranty days must be a whole number between 1 and %d", ErrInvalidField, MaxPeriodDays)
	}
	if Expiry(serviceDate, days).After(MaxDate) {
		return ParsedWarranty{}, fmt.Errorf("%w: warranty would end after %s", ErrInvalidField, MaxDate)
	}
	value, err := ParseAmount(in.Value)
	if err != nil || value < 0 {
		return ParsedWarranty{}, fmt.Errorf("%w: value must be a non-negative amount", ErrInvalidField)
	}
	return ParsedWarranty{ServiceDate: serviceDate, Days: days, Value: value}, nil
}

var errNotFinite = errors.New("amount is not a finite number")

// ParseAmount reads a money amount written with a decimal dot ("1250.50")
// or in pt-BR form ("1.250,50"). Non-finite values are rejected.
func ParseAmount(s string) (float64, error) {
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// Expiry returns the last covered day of a warranty of n days starting on d.
func Expiry(d Date, days int) Date {
	return d.AddDays(days)
}

// NewWarrantyRecord builds a record from a validated input.
func NewWarrantyRecord(in WarrantyInput, now time.Time) (WarrantyRecord, error) {
	parsed, err := in.Validate()
	if err != nil {
		return WarrantyRecord{}, err
	}
	in = in.Trim()
	return WarrantyRecord{
		ID:           NewRecordID(),
		ClientName:   in.ClientName,
		Vehicle:      in.Vehicle,
		Phone:        in.Phone,
		ServiceDate:  parsed.ServiceDate,
		WarrantyDays: parsed.Days,
		ExpiryDate:   Expiry(parsed.ServiceDate, parsed.Days),
		Service:      in.Service,
		Value:        parsed.Value,
		CreatedAt:    DateOf(now),
	}, nil
}
