package domain

import "time"

// Employee represents one cleaned employee record in the silver layer.
// Raw extracts may contain duplicates and unparsable dates; by the time a row
// becomes an Employee it has survived deduplication and date parsing.
type Employee struct {
	EmployeeID      string     `json:"employee_id"`
	FullName        string     `json:"full_name"`
	Department      string     `json:"department"`
	HireDate        time.Time  `json:"hire_date"`
	TerminationDate *time.Time `json:"termination_date,omitempty"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`

	// Derived at transform time.
	IsActive   bool `json:"is_active"`
	TenureDays int  `json:"tenure_days"`

	// TermBeforeHire marks a constraint violation in the source data
	// (termination date earlier than hire date). The row is kept and
	// TenureDays is clamped to zero so aggregates stay non-negative.
	TermBeforeHire bool `json:"term_before_hire"`
}

// Terminated reports whether the employee has a termination date.
func (e *Employee) Terminated() bool {
	return e.TerminationDate != nil
}
