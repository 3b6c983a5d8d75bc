// Package legend defines the structured payloads exchanged with the
// model: the accumulated circuit legend and the two response variants
// (legend update, halt signal) discriminated on response_type.
package legend

import (
	"encoding/json"
	"fmt"
)

// Response type discriminator values.
const (
	TypeLegendUpdate = "legend_update"
	TypeHaltSignal   = "halt_signal"
)

// Circuit is one schedule line of the legend, transcribed as printed.
type Circuit struct {
	Tag         string `json:"tag"`         // e.g. "10Q1", "20F5.1"
	Rating      string `json:"rating"`      // e.g. "4x10A/30mA"
	Description string `json:"description"` // functional name of the circuit
}

// Legend is the running structured record accumulated across batches.
type Legend struct {
	IssuingCompany    string    `json:"issuing_company"`
	ProjectSite       string    `json:"project_site"`
	DistributionBoard string    `json:"distribution_board"`
	Circuits          []Circuit `json:"circuits"`
}

// Update is the normal response variant: the legend revised with the
// content of the current page batch.
type Update struct {
	ResponseType string `json:"response_type"`
	BatchSummary string `json:"batch_summary"`
	Legend       Legend `json:"legend"`
}

// HaltSignal is the fallback response variant: the model could not
// continue normal processing for this batch.
type HaltSignal struct {
	ResponseType string `json:"response_type"`
	ErrorMessage string `json:"error_message"`
}

// Response is either *Update or *HaltSignal.
type Response interface {
	Type() string
}

// Type implements Response.
func (u *Update) Type() string { return TypeLegendUpdate }

// Type implements Response.
func (h *HaltSignal) Type() string { return TypeHaltSignal }

// Decode parses a raw model response into its concrete variant by the
// response_type discriminator. The wire shape carries both variants'
// fields with nulls, so the variant/field pairing is checked here:
// a legend update must carry a legend, a halt signal its message.
func Decode(raw json.RawMessage) (Response, error) {
	var body struct {
		ResponseType string  `json:"response_type"`
		BatchSummary *string `json:"batch_summary"`
		Legend       *Legend `json:"legend"`
		ErrorMessage *string `json:"error_message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	switch body.ResponseType {
	case TypeLegendUpdate:
		if body.Legend == nil {
			return nil, fmt.Errorf("legend update carries no legend")
		}
		u := &Update{ResponseType: TypeLegendUpdate, Legend: *body.Legend}
		if body.BatchSummary != nil {
			u.BatchSummary = *body.BatchSummary
		}
		return u, nil
	case TypeHaltSignal:
		if body.ErrorMessage == nil || *body.ErrorMessage == "" {
			return nil, fmt.Errorf("halt signal carries no error message")
		}
		return &HaltSignal{ResponseType: TypeHaltSignal, ErrorMessage: *body.ErrorMessage}, nil
	default:
		return nil, fmt.Errorf("unknown response_type %q", body.ResponseType)
	}
}
