package agency

import (
	"maps"
	"slices"
	"strconv"
)

// WeekKey returns the progress map key for a course week.
func WeekKey(week int) string {
	return strconv.Itoa(week)
}

// IsBench reports whether the agency is the reserved bench pool.
func (a *Agency) IsBench() bool {
	return a.ID == BenchID
}

// MemberIndex returns the position of the student in Members, or -1.
func (a *Agency) MemberIndex(studentID string) int {
	for i := range a.Members {
		if a.Members[i].ID == studentID {
			return i
		}
	}
	return -1
}

// Member returns a pointer to the member with the given id, or nil.
func (a *Agency) Member(studentID string) *Student {
	if i := a.MemberIndex(studentID); i >= 0 {
		return &a.Members[i]
	}
	return nil
}

// RemoveMember removes and returns the member with the given id.
func (a *Agency) RemoveMember(studentID string) (Student, bool) {
	i := a.MemberIndex(studentID)
	if i < 0 {
		return Student{}, false
	}
	s := a.Members[i]
	a.Members = slices.Delete(a.Members, i, i+1)
	return s, true
}

// AppendEvent adds an event to the end of the log. The log is never reordered.
func (a *Agency) AppendEvent(e GameEvent) {
	a.EventLog = append(a.EventLog, e)
}

// Mercato returns the index of the mercato request with the given id, or -1.
func (a *Agency) Mercato(requestID string) int {
	for i := range a.MercatoRequests {
		if a.MercatoRequests[i].ID == requestID {
			return i
		}
	}
	return -1
}

// Challenge returns the index of the challenge with the given id, or -1.
func (a *Agency) Challenge(requestID string) int {
	for i := range a.Challenges {
		if a.Challenges[i].ID == requestID {
			return i
		}
	}
	return -1
}

// Merger returns the index of the merger request with the given id, or -1.
func (a *Agency) Merger(requestID string) int {
	for i := range a.MergerRequests {
		if a.MergerRequests[i].ID == requestID {
			return i
		}
	}
	return -1
}

// RemoveMercato drops the mercato request at index i.
func (a *Agency) RemoveMercato(i int) {
	a.MercatoRequests = slices.Delete(a.MercatoRequests, i, i+1)
}

// PurgeStudentRequests drops every pending mercato request that references
// the student. It returns the number of requests removed.
func (a *Agency) PurgeStudentRequests(studentID string) int {
	before := len(a.MercatoRequests)
	a.MercatoRequests = slices.DeleteFunc(a.MercatoRequests, func(r MercatoRequest) bool {
		return r.StudentID == studentID && r.Status == RequestPending
	})
	return before - len(a.MercatoRequests)
}

// Clone returns a deep copy. Engine operations mutate clones only, so a
// failed commit never leaks into a snapshot another caller holds.
func (a *Agency) Clone() *Agency {
	if a == nil {
		return nil
	}
	c := *a
	c.Members = make([]Student, len(a.Members))
	for i, m := range a.Members {
		c.Members[i] = m.clone()
	}
	if a.Progress != nil {
		c.Progress = make(map[string]WeekState, len(a.Progress))
		for k, w := range a.Progress {
			c.Progress[k] = w.clone()
		}
	}
	c.PeerReviews = slices.Clone(a.PeerReviews)
	c.ReviewHistory = slices.Clone(a.ReviewHistory)
	c.EventLog = make([]GameEvent, len(a.EventLog))
	for i, e := range a.EventLog {
		c.EventLog[i] = e.clone()
	}
	c.MercatoRequests = make([]MercatoRequest, len(a.MercatoRequests))
	for i, r := range a.MercatoRequests {
		r.Votes = maps.Clone(r.Votes)
		c.MercatoRequests[i] = r
	}
	c.MergerRequests = make([]MergerRequest, len(a.MergerRequests))
	for i, r := range a.MergerRequests {
		r.Votes = maps.Clone(r.Votes)
		c.MergerRequests[i] = r
	}
	c.Challenges = make([]ChallengeRequest, len(a.Challenges))
	for i, r := range a.Challenges {
		r.Votes = maps.Clone(r.Votes)
		c.Challenges[i] = r
	}
	return &c
}

func (s Student) clone() Student {
	s.ActiveBets = slices.Clone(s.ActiveBets)
	s.Badges = slices.Clone(s.Badges)
	s.History = slices.Clone(s.History)
	return s
}

func (w WeekState) clone() WeekState {
	ds := make([]Deliverable, len(w.Deliverables))
	for i, d := range w.Deliverables {
		if d.Grading != nil {
			g := *d.Grading
			d.Grading = &g
		}
		ds[i] = d
	}
	w.Deliverables = ds
	if w.ScoringConfig != nil {
		sc := *w.ScoringConfig
		w.ScoringConfig = &sc
	}
	return w
}

func (e GameEvent) clone() GameEvent {
	if e.DeltaVE != nil {
		v := *e.DeltaVE
		e.DeltaVE = &v
	}
	if e.DeltaBudgetReal != nil {
		v := *e.DeltaBudgetReal
		e.DeltaBudgetReal = &v
	}
	return e
}
