package service

import (
	"context"
	"math"
)

type PublicStats struct {
	TotalIssues    int `json:"totalIssues"`
	TotalUsers     int `json:"totalUsers"`
	ResolutionRate int `json:"resolutionRate"`
}

// PublicStats reports totals and the share of issues in the resolved
// status, as a rounded percentage.
func (s *Service) PublicStats(ctx context.Context) (PublicStats, error) {
	issues, users, resolved, err := s.st.PublicStats(ctx, s.cfg.IssueResolvedStatus)
	if err != nil {
		return PublicStats{}, err
	}
	out := PublicStats{TotalIssues: issues, TotalUsers: users}
	if issues > 0 {
		out.ResolutionRate = int(math.Round(float64(resolved) * 100 / float64(issues)))
	}
	return out, nil
}
