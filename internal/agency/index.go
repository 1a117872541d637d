package agency

import "fmt"

// DuplicateMemberError reports a student found in more than one agency.
// Membership is exclusive, so this always indicates corrupted state.
type DuplicateMemberError struct {
	StudentID string
	AgencyIDs []string
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("student %q is a member of several agencies: %v", e.StudentID, e.AgencyIDs)
}

// StudentIndex maps student id → owning agency id.
type StudentIndex map[string]string

// BuildStudentIndex indexes every member of every agency. It refuses to pick
// a winner when a student appears twice.
func BuildStudentIndex(agencies []*Agency) (StudentIndex, error) {
	idx := make(StudentIndex)
	for _, a := range agencies {
		for _, m := range a.Members {
			if prev, ok := idx[m.ID]; ok {
				return nil, &DuplicateMemberError{StudentID: m.ID, AgencyIDs: []string{prev, a.ID}}
			}
			idx[m.ID] = a.ID
		}
	}
	return idx, nil
}

// ByID indexes agencies by id.
func ByID(agencies []*Agency) map[string]*Agency {
	out := make(map[string]*Agency, len(agencies))
	for _, a := range agencies {
		out[a.ID] = a
	}
	return out
}
