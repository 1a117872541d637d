package agency

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAgency() *Agency {
	ve := 3
	return &Agency{
		ID:   "a1",
		Name: "Pixel Forge",
		Members: []Student{
			{ID: "s1", Name: "Ada", IndividualScore: 50, ActiveBets: []Bet{{ID: "b1", Status: BetActive}}},
			{ID: "s2", Name: "Linus", IndividualScore: 60},
		},
		Progress: map[string]WeekState{
			"1": {Deliverables: []Deliverable{{ID: "d1", Grading: &Grading{DaysLate: 5}}}},
		},
		EventLog: []GameEvent{{ID: "e1", DeltaVE: &ve}},
		MercatoRequests: []MercatoRequest{
			{ID: "m1", StudentID: "s9", Status: RequestPending, Votes: map[string]VoteChoice{"s1": VoteApprove}},
			{ID: "m2", StudentID: "s9", Status: RequestPending},
			{ID: "m3", StudentID: "s2", Status: RequestPending},
		},
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := sampleAgency()
	c := a.Clone()

	c.Members[0].ActiveBets[0].Status = BetLost
	c.Progress["1"].Deliverables[0].Grading.DaysLate = 0
	*c.EventLog[0].DeltaVE = 99
	c.MercatoRequests[0].Votes["s2"] = VoteReject

	assert.Equal(t, BetActive, a.Members[0].ActiveBets[0].Status)
	assert.Equal(t, 5, a.Progress["1"].Deliverables[0].Grading.DaysLate)
	assert.Equal(t, 3, *a.EventLog[0].DeltaVE)
	assert.Len(t, a.MercatoRequests[0].Votes, 1)
}

func TestRemoveMember(t *testing.T) {
	a := sampleAgency()
	s, ok := a.RemoveMember("s1")
	require.True(t, ok)
	assert.Equal(t, "Ada", s.Name)
	assert.Equal(t, -1, a.MemberIndex("s1"))
	assert.Len(t, a.Members, 1)

	_, ok = a.RemoveMember("missing")
	assert.False(t, ok)
}

func TestPurgeStudentRequests(t *testing.T) {
	a := sampleAgency()
	assert.Equal(t, 2, a.PurgeStudentRequests("s9"))
	require.Len(t, a.MercatoRequests, 1)
	assert.Equal(t, "m3", a.MercatoRequests[0].ID)
}

func TestBuildStudentIndex(t *testing.T) {
	a := sampleAgency()
	b := &Agency{ID: "a2", Members: []Student{{ID: "s3"}}}

	idx, err := BuildStudentIndex([]*Agency{a, b})
	require.NoError(t, err)
	assert.Equal(t, "a1", idx["s1"])
	assert.Equal(t, "a2", idx["s3"])

	b.Members = append(b.Members, Student{ID: "s1"})
	_, err = BuildStudentIndex([]*Agency{a, b})
	var dup *DuplicateMemberError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "s1", dup.StudentID)
	assert.Equal(t, []string{"a1", "a2"}, dup.AgencyIDs)
}

func TestPeerReviewAverage(t *testing.T) {
	r := PeerReview{Attendance: 5, Quality: 4, Involvement: 3}
	assert.InDelta(t, 4.0, r.Average(), 1e-9)
}
