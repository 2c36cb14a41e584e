package dto

import (
	"encoding/json"
	"time"

	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// GradingModelCreateRequest carries a new grading model and its graph.
type GradingModelCreateRequest struct {
	Name           string          `json:"name" validate:"required,max=255"`
	GraphStructure json.RawMessage `json:"graph_structure" validate:"required"`
}

// GradingModelUpdateRequest carries a partial grading model update.
type GradingModelUpdateRequest struct {
	Name           *string         `json:"name" validate:"omitempty,max=255"`
	GraphStructure json.RawMessage `json:"graph_structure"`
}

// GradingModelResponse is the API shape of a grading model, decorated with
// the staleness flags of its referenced sources.
type GradingModelResponse struct {
	ID                 uint            `json:"id"`
	CourseID           uint            `json:"course_id"`
	Name               string          `json:"name"`
	GraphStructure     json.RawMessage `json:"graph_structure"`
	HasDeletedSources  bool            `json:"has_deleted_sources"`
	HasArchivedSources bool            `json:"has_archived_sources"`
	HasExpiredSources  bool            `json:"has_expired_sources"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewGradingModelResponse builds the response for one grading model.
func NewGradingModelResponse(model models.GradingModel, flags graph.StalenessFlags) GradingModelResponse {
	return GradingModelResponse{
		ID:                 model.ID,
		CourseID:           model.CourseID,
		Name:               model.Name,
		GraphStructure:     json.RawMessage(model.GraphStructure),
		HasDeletedSources:  flags.HasDeletedSources,
		HasArchivedSources: flags.HasArchivedSources,
		HasExpiredSources:  flags.HasExpiredSources,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}
