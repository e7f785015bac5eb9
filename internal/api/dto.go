package api

import (
	"license-classifier/internal/classify"
	"license-classifier/internal/store"
)

// ClassificationDTO is the API representation for a classification result.
type ClassificationDTO struct {
	LicenseName string `json:"license_name"`
	Category    string `json:"category"`
	Explanation string `json:"explanation"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// UpdateRequest carries a manual classification override.
type UpdateRequest struct {
	Category    string `json:"category" binding:"required"`
	Explanation string `json:"explanation" binding:"required"`
}

// StatsResponse aggregates stored classification results.
type StatsResponse struct {
	TotalLicenses        int64            `json:"total_licenses"`
	CategoryDistribution map[string]int64 `json:"category_distribution"`
	Licenses             []string         `json:"licenses"`
}

// DeleteResponse confirms a removed classification.
type DeleteResponse struct {
	Message string            `json:"message"`
	Deleted ClassificationDTO `json:"deleted"`
}

// FromModel converts a store.Classification into the DTO representation.
func FromModel(c store.Classification) ClassificationDTO {
	return ClassificationDTO{
		LicenseName: c.LicenseName,
		Category:    c.Category,
		Explanation: c.Explanation,
		Degraded:    c.Degraded,
	}
}

// FromOutcome converts an orchestrator outcome into the DTO representation.
func FromOutcome(o classify.Outcome) ClassificationDTO {
	return ClassificationDTO{
		LicenseName: o.LicenseName,
		Category:    o.Category,
		Explanation: o.Explanation,
		Degraded:    o.Degraded,
	}
}
