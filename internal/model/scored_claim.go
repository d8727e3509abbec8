package model

import (
	"time"

	"github.com/google/uuid"
)

// ScoredClaim is one scored input row, ready for COPY into risk.scored_claims.
type ScoredClaim struct {
	BatchID    uuid.UUID
	RowNumber  int64 // 1-based position in the input file
	DenialRisk float64
	Suggestion string
	Claim      map[string]string // original cells keyed by header
}

// ScoredColumns returns the ordered column names for COPY into risk.scored_claims.
func ScoredColumns() []string {
	return []string{
		"batch_id",
		"row_number",
		"denial_risk",
		"suggestion",
		"claim",
	}
}

// CopyValues returns the row values in the same order as ScoredColumns(),
// suitable for pgx CopyFromSource.
func (r *ScoredClaim) CopyValues() []any {
	return []any{
		r.BatchID,
		r.RowNumber,
		r.DenialRisk,
		r.Suggestion,
		r.Claim,
	}
}

// ScoringBatch identifies one scoring run recorded in risk.scoring_batches.
type ScoringBatch struct {
	ID            uuid.UUID
	ArtifactID    string
	ModelKind     string
	ScoringMethod string
	SourcePath    string
	SourceSHA256  string
	CreatedAt     time.Time
}
