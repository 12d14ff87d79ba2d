package dto

import "github.com/hawksec/hawk/internal/domain/progress"

// SelectTemplateRequest picks the remediation template of an alert
type SelectTemplateRequest struct {
	TemplateID string `json:"templateId" validate:"required"`
}

// ProgressResponse is a progress document with its completion share
type ProgressResponse struct {
	*progress.SolutionProgress
	Percentage float64 `json:"percentage"`
}
