package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the DD-MM-YYYY layout the CoWIN API expects and returns.
const DateLayout = "02-01-2006"

type Dose int

const (
	Dose1 Dose = 1
	Dose2 Dose = 2
)

type FeeType string

const (
	FeeFree FeeType = "Free"
	FeePaid FeeType = "Paid"
)

// ParseFeeType accepts "free"/"paid" in any case.
func ParseFeeType(raw string) (FeeType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "free":
		return FeeFree, nil
	case "paid":
		return FeePaid, nil
	}
	return "", fmt.Errorf("unknown fee type %q", raw)
}

// DataPoint is a single polling target. Exactly one of Pincode and DistrictID is set.
type DataPoint struct {
	Pincode    string
	DistrictID int
	Date       string
}

func (d DataPoint) ByPincode() bool {
	return d.Pincode != ""
}

func (d DataPoint) Key() string {
	if d.ByPincode() {
		return "pincode:" + d.Pincode
	}
	return fmt.Sprintf("district:%d", d.DistrictID)
}

type SearchCriteria struct {
	Ages     map[int]struct{}
	Vaccines map[string]struct{}
	FeeTypes map[FeeType]struct{}
	Dose1    bool
	Dose2    bool
}

func (c SearchCriteria) AcceptsAge(age int) bool {
	_, ok := c.Ages[age]
	return ok
}

// AcceptsVaccine compares case-insensitively; vaccine names are stored upper-cased.
func (c SearchCriteria) AcceptsVaccine(name string) bool {
	_, ok := c.Vaccines[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

func (c SearchCriteria) AcceptsFee(fee FeeType) bool {
	_, ok := c.FeeTypes[fee]
	return ok
}

// SlotRecord is one session at a center, flattened from either API shape.
type SlotRecord struct {
	SessionID     string
	CenterID      int
	Name          string
	Address       string
	Pincode       int
	DistrictName  string
	StateName     string
	Date          string
	Vaccine       string
	FeeType       string
	Fee           string
	MinAgeLimit   int
	Capacity      int
	CapacityDose1 int
	CapacityDose2 int
	Slots         []string
}

// FeeClass classifies the slot. The explicit fee type wins; otherwise a zero fee is free.
func (s SlotRecord) FeeClass() FeeType {
	if ft, err := ParseFeeType(s.FeeType); err == nil {
		return ft
	}
	fee := strings.TrimSpace(s.Fee)
	if fee == "" || fee == "0" {
		return FeeFree
	}
	return FeePaid
}

func (s SlotRecord) DoseCapacity(d Dose) int {
	switch d {
	case Dose1:
		return s.CapacityDose1
	case Dose2:
		return s.CapacityDose2
	}
	return 0
}

// Match is a slot that passed the criteria for a particular dose.
type Match struct {
	Slot     SlotRecord
	Dose     Dose
	Capacity int
}

// Key identifies a match across rounds for duplicate suppression.
func (m Match) Key() string {
	id := m.Slot.SessionID
	if id == "" {
		id = fmt.Sprintf("%d|%s|%s", m.Slot.CenterID, m.Slot.Date, m.Slot.Vaccine)
	}
	return fmt.Sprintf("%s|dose%d", id, m.Dose)
}

// Record is a persisted history entry in the structured JSON log.
type Record struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Capacity    int     `json:"capacity"`
	Fee         FeeType `json:"fee"`
	Dose        Dose    `json:"dose"`
	Dose1       int     `json:"dose1"`
	Dose2       int     `json:"dose2"`
	Vaccine     string  `json:"vaccine"`
	BookingTime string  `json:"bookingTime"`
	Pincode     int     `json:"pincode"`
	Name        string  `json:"name"`
	District    string  `json:"district"`
}

const BookingTimeLayout = "02-01-2006 15:04:05"

func NewRecord(id string, m Match, foundAt time.Time) Record {
	return Record{
		ID:          id,
		Date:        m.Slot.Date,
		Capacity:    m.Slot.Capacity,
		Fee:         m.Slot.FeeClass(),
		Dose:        m.Dose,
		Dose1:       m.Slot.CapacityDose1,
		Dose2:       m.Slot.CapacityDose2,
		Vaccine:     m.Slot.Vaccine,
		BookingTime: foundAt.Format(BookingTimeLayout),
		Pincode:     m.Slot.Pincode,
		Name:        m.Slot.Name,
		District:    m.Slot.DistrictName,
	}
}

type Notification struct {
	Topic    string
	Title    string
	Tags     []string
	Message  string
	Priority int
}
