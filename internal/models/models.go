package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Lead{},
		&LeadScoreHistory{},
		&LeadNote{},
		&Deal{},
		&DealActivity{},
	}
}
