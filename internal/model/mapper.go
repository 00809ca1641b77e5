package model

import (
	"encoding/json"
	"fmt"

	"github.com/Krive/spbatch/pkg/spbatch"
)

// DefaultMapper implements spbatch.JSONMappingHelper for *Entity models: it
// unmarshals a responded request's ResponseJSON into a flat field map.
// Requests whose Model isn't an *Entity are left untouched (a caller with
// its own typed models wires its own JSONMappingHelper instead).
type DefaultMapper struct{}

func (DefaultMapper) Map(req *spbatch.Request) error {
	entity, ok := req.Model.(*Entity)
	if !ok || req.ResponseJSON == "" {
		return nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(req.ResponseJSON), &fields); err != nil {
		return fmt.Errorf("model: unmarshaling response for request %s: %w", req.ID(), err)
	}
	entity.setFields(fields)
	return nil
}
