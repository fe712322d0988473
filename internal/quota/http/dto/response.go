package dto

import quotaDomain "github.com/allisson/filevault/internal/quota/domain"

// QuotaResponse reports vault usage against the caller's budget. RemainingBytes
// is -1 when the budget is unlimited.
type QuotaResponse struct {
	UsedBytes      int64 `json:"used_bytes"`
	LimitBytes     int64 `json:"limit_bytes"`
	RemainingBytes int64 `json:"remaining_bytes"`
	Unlimited      bool  `json:"unlimited"`
}

// MapSummaryToResponse converts a domain summary to an API response.
func MapSummaryToResponse(s *quotaDomain.Summary) QuotaResponse {
	return QuotaResponse{
		UsedBytes:      s.UsedBytes,
		LimitBytes:     s.LimitBytes,
		RemainingBytes: s.Remaining(),
		Unlimited:      s.Unlimited,
	}
}
