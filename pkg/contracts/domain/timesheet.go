package domain

import "time"

// Punch represents one cleaned timesheet row in the silver layer: a single
// scheduled shift for a single employee, with the actual punch times and the
// attendance flags derived from them.
type Punch struct {
	EmployeeID     string    `json:"employee_id"`
	WorkDate       time.Time `json:"work_date"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	PunchIn        time.Time `json:"punch_in"`
	PunchOut       time.Time `json:"punch_out"`
	HoursWorked    float64   `json:"hours_worked"`

	// Derived at transform time. MinutesLate and MinutesEarly are signed:
	// a negative MinutesLate means the employee punched in before the
	// scheduled start.
	MinutesLate  float64 `json:"minutes_late"`
	MinutesEarly float64 `json:"minutes_early"`
	IsLate       bool    `json:"is_late"`
	IsEarly      bool    `json:"is_early"`
	IsOvertime   bool    `json:"is_overtime"`
	IsNormalWork bool    `json:"is_normal_work"`

	// IsValidHours is false when HoursWorked is negative or exceeds 24.
	// Such rows are kept but excluded from hours-based aggregates.
	IsValidHours bool `json:"is_valid_hours"`
}
