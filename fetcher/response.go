package fetcher

import (
	"encoding/json"
	"strings"

	"cowin-slots/model"
)

// slotsResponse covers both API shapes: findBy* returns a flat "sessions" list,
// calendarBy* returns "centers" with nested sessions.
type slotsResponse struct {
	Sessions []flatSession `json:"sessions"`
	Centers  []center      `json:"centers"`
}

type session struct {
	SessionID              string     `json:"session_id"`
	Date                   string     `json:"date"`
	AvailableCapacity      float64    `json:"available_capacity"`
	AvailableCapacityDose1 float64    `json:"available_capacity_dose1"`
	AvailableCapacityDose2 float64    `json:"available_capacity_dose2"`
	MinAgeLimit            float64    `json:"min_age_limit"`
	Vaccine                string     `json:"vaccine"`
	Slots                  []slotTime `json:"slots"`
}

type flatSession struct {
	session
	CenterID     int    `json:"center_id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	StateName    string `json:"state_name"`
	DistrictName string `json:"district_name"`
	Pincode      int    `json:"pincode"`
	FeeType      string `json:"fee_type"`
	Fee          string `json:"fee"`
}

type vaccineFee struct {
	Vaccine string `json:"vaccine"`
	Fee     string `json:"fee"`
}

type center struct {
	CenterID     int          `json:"center_id"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	StateName    string       `json:"state_name"`
	DistrictName string       `json:"district_name"`
	Pincode      int          `json:"pincode"`
	FeeType      string       `json:"fee_type"`
	Sessions     []session    `json:"sessions"`
	VaccineFees  []vaccineFee `json:"vaccine_fees"`
}

// slotTime accepts both the old "09:00AM-11:00AM" strings and the newer
// {"time": ..., "seats": ...} objects.
type slotTime string

func (s *slotTime) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = slotTime(str)
		return nil
	}
	var obj struct {
		Time string `json:"time"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = slotTime(obj.Time)
	return nil
}

func (s session) toRecord() model.SlotRecord {
	slots := make([]string, 0, len(s.Slots))
	for _, st := range s.Slots {
		slots = append(slots, string(st))
	}
	return model.SlotRecord{
		SessionID:     s.SessionID,
		Date:          s.Date,
		Vaccine:       s.Vaccine,
		MinAgeLimit:   int(s.MinAgeLimit),
		Capacity:      int(s.AvailableCapacity),
		CapacityDose1: int(s.AvailableCapacityDose1),
		CapacityDose2: int(s.AvailableCapacityDose2),
		Slots:         slots,
	}
}

func (r slotsResponse) records() []model.SlotRecord {
	out := make([]model.SlotRecord, 0, len(r.Sessions))
	for _, fs := range r.Sessions {
		rec := fs.toRecord()
		rec.CenterID = fs.CenterID
		rec.Name = fs.Name
		rec.Address = fs.Address
		rec.StateName = fs.StateName
		rec.DistrictName = fs.DistrictName
		rec.Pincode = fs.Pincode
		rec.FeeType = fs.FeeType
		rec.Fee = fs.Fee
		out = append(out, rec)
	}

	for _, c := range r.Centers {
		for _, s := range c.Sessions {
			rec := s.toRecord()
			rec.CenterID = c.CenterID
			rec.Name = c.Name
			rec.Address = c.Address
			rec.StateName = c.StateName
			rec.DistrictName = c.DistrictName
			rec.Pincode = c.Pincode
			rec.FeeType = c.FeeType
			rec.Fee = c.feeFor(s.Vaccine)
			out = append(out, rec)
		}
	}
	return out
}

func (c center) feeFor(vaccine string) string {
	for _, vf := range c.VaccineFees {
		if strings.EqualFold(vf.Vaccine, vaccine) {
			return vf.Fee
		}
	}
	return ""
}
