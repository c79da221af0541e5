package models

import (
	"encoding/json"
	"fmt"
	"time"

	"eamhc/emotion"
)

// Prediction is one stored classification. Rows are written once and never
// updated.
type Prediction struct {
	ID         int64   `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID     string  `gorm:"not null;default:'';index" json:"user_id"`
	RawText    string  `gorm:"type:text" json:"rawtext"`
	Label      string  `gorm:"not null;index" json:"prediction"`
	Confidence float64 `gorm:"not null" json:"probability"`
	// Distribution is a JSON object (ex: {"joy":0.9,"sad":0.1}); empty when
	// the caller only reported label and confidence.
	Distribution string     `gorm:"type:text" json:"-"`
	Mode         string     `gorm:"not null;default:'model'" json:"mode"`
	CreatedAt    *time.Time `gorm:"index" json:"created_at"`
}

// NewPrediction builds a row from a shaped prediction.
func NewPrediction(userID string, p *emotion.Prediction) (Prediction, error) {
	row := Prediction{
		UserID:     userID,
		RawText:    p.Text,
		Label:      p.Label,
		Confidence: p.Confidence,
		Mode:       string(p.Mode),
	}
	if err := row.SetDistribution(p.Distribution); err != nil {
		return Prediction{}, err
	}
	return row, nil
}

// SetDistribution encodes dist into the Distribution column.
func (p *Prediction) SetDistribution(dist map[string]float64) error {
	if len(dist) == 0 {
		p.Distribution = ""
		return nil
	}
	b, err := json.Marshal(dist)
	if err != nil {
		return fmt.Errorf("encode distribution: %w", err)
	}
	p.Distribution = string(b)
	return nil
}

// DistributionMap decodes the Distribution column. A row without one yields
// a nil map.
func (p Prediction) DistributionMap() (map[string]float64, error) {
	if p.Distribution == "" {
		return nil, nil
	}
	var dist map[string]float64
	if err := json.Unmarshal([]byte(p.Distribution), &dist); err != nil {
		return nil, fmt.Errorf("decode distribution of prediction %d: %w", p.ID, err)
	}
	return dist, nil
}

// MarshalJSON exposes the distribution as an object rather than a string.
func (p Prediction) MarshalJSON() ([]byte, error) {
	type row Prediction
	dist, err := p.DistributionMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		row
		Distribution map[string]float64 `json:"distribution,omitempty"`
	}{row(p), dist})
}
