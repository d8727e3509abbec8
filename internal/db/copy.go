package db

import (
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/gyeh/claimrisk/internal/model"
)

// ChannelSource feeds scored claims to COPY as the producer sends them. A row
// whose risk is not a probability stops the stream with an error naming it.
type ChannelSource struct {
	ch      <-chan *model.ScoredClaim
	current *model.ScoredClaim
	err     error
}

func NewChannelSource(ch <-chan *model.ScoredClaim) *ChannelSource {
	return &ChannelSource{ch: ch}
}

func (s *ChannelSource) Next() bool {
	if s.err != nil {
		return false
	}
	row, ok := <-s.ch
	if !ok {
		return false
	}
	if r := row.DenialRisk; math.IsNaN(r) || r < 0 || r > 1 {
		s.err = fmt.Errorf("row %d: denial risk %v outside [0,1]", row.RowNumber, r)
		return false
	}
	s.current = row
	return true
}

func (s *ChannelSource) Values() ([]any, error) {
	return s.current.CopyValues(), nil
}

func (s *ChannelSource) Err() error {
	return s.err
}

var _ pgx.CopyFromSource = (*ChannelSource)(nil)
