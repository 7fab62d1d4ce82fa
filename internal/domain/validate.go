package domain

import "fmt"

// Validate checks the identifying fields every stored order must carry and
// the enumerations of the nested documents.
func (o *ProductionOrder) Validate() error {
	required := []struct {
		name  string
		empty bool
	}{
		{"id", o.ID == ""},
		{"orderCode", o.OrderCode == ""},
		{"itemCode", o.ItemCode == ""},
		{"customerId", o.CustomerID == ""},
		{"customerName", o.CustomerName == ""},
		{"gender", o.Gender == ""},
		{"totalQuantity", o.TotalQuantity == 0},
		{"status", o.Status == ""},
		{"priority", o.Priority == ""},
	}
	for _, f := range required {
		if f.empty {
			return missing(f.name)
		}
	}

	if !o.Gender.Valid() {
		return invalid("gender")
	}
	if o.TotalQuantity < 0 {
		return invalid("totalQuantity")
	}
	if !o.Status.Valid() {
		return invalid("status")
	}
	if !o.Priority.Valid() {
		return invalid("priority")
	}
	for i, s := range o.Stages {
		if !s.Status.Valid() {
			return invalid(fmt.Sprintf("stages[%d].status", i))
		}
	}
	for i, h := range o.StatusHistory {
		if !h.Status.Valid() {
			return invalid(fmt.Sprintf("statusHistory[%d].status", i))
		}
	}
	if o.ParentOrderID != nil && *o.ParentOrderID == o.ID {
		return &FieldError{Field: "parentOrderId", Err: ErrParentCycle}
	}
	return nil
}

// HasHistoryPrefix reports whether prev is an unmodified prefix of o's
// status history.
func (o *ProductionOrder) HasHistoryPrefix(prev []StatusEntry) bool {
	if len(prev) > len(o.StatusHistory) {
		return false
	}
	for i := range prev {
		if prev[i] != o.StatusHistory[i] {
			return false
		}
	}
	return true
}

// Stage returns the stage with the given id.
func (o *ProductionOrder) Stage(id string) *Stage {
	for i := range o.Stages {
		if o.Stages[i].ID == id {
			return &o.Stages[i]
		}
	}
	return nil
}
