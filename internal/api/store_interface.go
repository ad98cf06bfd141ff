package api

import "github.com/sirikarn-cs/SumRate/internal/services"

// Store is the persistence boundary shared by the in-memory and sqlite backends. It
// covers the two-step submission write plus the researcher surface (export, analytics,
// auth). Implementations must make resubmission under the same session id idempotent:
// CreateSessionRecord upserts and Append*Rows replaces the session's rows.
type Store interface {
	CreateSessionRecord(rec *services.SessionRecord) (string, error)
	AppendCompareRows(rows []*services.CompareRow) error
	AppendRatingRows(rows []*services.RatingRow) error

	ListSessionRecords() ([]*services.SessionRecord, error)
	ListCompareRows() ([]*services.CompareRow, error)
	ListRatingRows() ([]*services.RatingRow, error)

	AddResearcher(r *services.Researcher) error
	FindResearcherByEmail(email string) (*services.Researcher, error)
}

var _ Store = (*MemoryStore)(nil)
