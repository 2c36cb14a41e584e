package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
)

// GradingModel is a named, versioned graph of formulas that turns task grades
// into one course grade. The graph itself is stored as an opaque JSON blob
// and round-tripped unchanged; its shape is owned by the graph package.
type GradingModel struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CourseID       uint           `gorm:"not null;index" json:"course_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	GraphStructure datatypes.JSON `gorm:"type:json;not null" json:"graph_structure"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Graph decodes the stored blob into the engine's graph structure.
func (m GradingModel) Graph() (graph.GraphStructure, error) {
	var g graph.GraphStructure
	if err := json.Unmarshal(m.GraphStructure, &g); err != nil {
		return graph.GraphStructure{}, fmt.Errorf("grading model %d has a corrupt graph: %w", m.ID, err)
	}
	return g, nil
}

// SetGraph encodes the graph structure into the stored blob.
func (m *GradingModel) SetGraph(g graph.GraphStructure) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	m.GraphStructure = datatypes.JSON(raw)
	return nil
}
