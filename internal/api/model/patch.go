package model

import (
	"github.com/jmoiron/sqlx/types"
)

// DatasetPatch is a partial update of a dataset. Nil fields are left
// unchanged.
type DatasetPatch struct {
	Data        types.JSONText
	AggregateBy *string
	Email       *string
}

// Apply applies the patch to the dataset snapshot and returns the names of
// fields that were ignored. Once a dataset is processing its inputs are
// frozen: changes to data and aggregate_by are dropped (and reported back)
// while email stays mutable.
func (d *Dataset) Apply(patch *DatasetPatch) []string {
	var ignored []string

	if patch == nil {
		return nil
	}

	if patch.Data != nil {
		if d.IsProcessing {
			ignored = append(ignored, "data")
		} else {
			d.Data = patch.Data
		}
	}

	if patch.AggregateBy != nil {
		if d.IsProcessing {
			ignored = append(ignored, "aggregate_by")
		} else {
			d.AggregateBy = *patch.AggregateBy
		}
	}

	if patch.Email != nil {
		d.Email = *patch.Email
	}

	return ignored
}
