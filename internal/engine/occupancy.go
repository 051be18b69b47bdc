package engine

// slotKey identifies one hour cell of the weekly grid.
type slotKey struct {
	Day  int
	Cell int
}

// occupancy tracks the slot keys consumed by teachers and groups during
// one generation run, plus the per-day counters the placement limits use.
// It is owned by a single run and never shared across runs. The revision
// counter advances on every commit so cached positive feasibility answers
// can be tied to the exact occupancy state they were computed against.
type occupancy struct {
	teacherCells map[string]map[slotKey]bool
	groupCells   map[string]map[slotKey]bool
	teacherDay   map[string]map[int]int
	subjectDay   map[string]map[int]map[string]int
	revision     uint64
}

func newOccupancy() *occupancy {
	return &occupancy{
		teacherCells: make(map[string]map[slotKey]bool),
		groupCells:   make(map[string]map[slotKey]bool),
		teacherDay:   make(map[string]map[int]int),
		subjectDay:   make(map[string]map[int]map[string]int),
	}
}

func (o *occupancy) teacherFree(teacherID string, keys []slotKey) bool {
	cells := o.teacherCells[teacherID]
	if cells == nil {
		return true
	}
	for _, key := range keys {
		if cells[key] {
			return false
		}
	}
	return true
}

func (o *occupancy) groupsFree(groupIDs []string, keys []slotKey) bool {
	for _, groupID := range groupIDs {
		cells := o.groupCells[groupID]
		if cells == nil {
			continue
		}
		for _, key := range keys {
			if cells[key] {
				return false
			}
		}
	}
	return true
}

func (o *occupancy) lessonsOnDay(teacherID string, day int) int {
	return o.teacherDay[teacherID][day]
}

func (o *occupancy) subjectOnDay(teacherID string, day int, subjectID string) int {
	return o.subjectDay[teacherID][day][subjectID]
}

// commit marks every cell of a placed lesson as consumed and bumps the
// per-day counters once per lesson.
func (o *occupancy) commit(teacherID string, groupIDs []string, subjectID string, keys []slotKey) {
	if o.teacherCells[teacherID] == nil {
		o.teacherCells[teacherID] = make(map[slotKey]bool)
	}
	for _, key := range keys {
		o.teacherCells[teacherID][key] = true
	}
	for _, groupID := range groupIDs {
		if o.groupCells[groupID] == nil {
			o.groupCells[groupID] = make(map[slotKey]bool)
		}
		for _, key := range keys {
			o.groupCells[groupID][key] = true
		}
	}

	day := keys[0].Day
	if o.teacherDay[teacherID] == nil {
		o.teacherDay[teacherID] = make(map[int]int)
	}
	o.teacherDay[teacherID][day]++

	if o.subjectDay[teacherID] == nil {
		o.subjectDay[teacherID] = make(map[int]map[string]int)
	}
	if o.subjectDay[teacherID][day] == nil {
		o.subjectDay[teacherID][day] = make(map[string]int)
	}
	o.subjectDay[teacherID][day][subjectID]++

	o.revision++
}
