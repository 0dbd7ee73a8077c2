package models

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&Entity{},
		&BusinessLine{},
		&Project{},
		&ProjectMilestone{},
		&BillingMilestone{},
		&TimeEntry{},
		&AuditLog{},
	}
}
