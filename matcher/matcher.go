package matcher

import "cowin-slots/model"

// Match reports whether slot satisfies every condition in c and, if so, which dose it
// was matched for. Dose 1 takes priority when both are requested and open.
func Match(slot model.SlotRecord, c model.SearchCriteria) (model.Match, bool) {
	if !c.AcceptsAge(slot.MinAgeLimit) || !c.AcceptsVaccine(slot.Vaccine) || !c.AcceptsFee(slot.FeeClass()) {
		return model.Match{}, false
	}

	dose, ok := selectDose(slot, c)
	if !ok {
		return model.Match{}, false
	}
	return model.Match{Slot: slot, Dose: dose, Capacity: slot.DoseCapacity(dose)}, true
}

func selectDose(slot model.SlotRecord, c model.SearchCriteria) (model.Dose, bool) {
	if c.Dose1 && slot.CapacityDose1 > 0 {
		return model.Dose1, true
	}
	if c.Dose2 && slot.CapacityDose2 > 0 {
		return model.Dose2, true
	}
	return 0, false
}

// Filter returns the matches in the order the slots were given.
func Filter(slots []model.SlotRecord, c model.SearchCriteria) []model.Match {
	var matches []model.Match
	for _, s := range slots {
		if m, ok := Match(s, c); ok {
			matches = append(matches, m)
		}
	}
	return matches
}
