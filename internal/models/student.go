package models

import "time"

// Student is the pupil record. Richer than the plain masters: it carries the
// admission identity, class placement, guardian contact and photo path used by
// ID card generation.
type Student struct {
	TenantRecord
	AdmissionNo   string     `db:"admission_no" json:"admission_no" validate:"required,max=50"`
	FirstName     string     `db:"first_name" json:"first_name" validate:"required,max=100"`
	LastName      string     `db:"last_name" json:"last_name,omitempty"`
	ClassID       string     `db:"class_id" json:"class_id" validate:"required"`
	SectionID     string     `db:"section_id" json:"section_id,omitempty"`
	BatchID       string     `db:"batch_id" json:"batch_id,omitempty"`
	Gender        string     `db:"gender" json:"gender,omitempty"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	GuardianName  string     `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone string     `db:"guardian_phone" json:"guardian_phone,omitempty"`
	Address       string     `db:"address" json:"address,omitempty"`
	PhotoPath     string     `db:"photo_path" json:"photo_path,omitempty"`
}

// MasterName returns the tenant+session unique admission number.
func (s *Student) MasterName() string { return s.AdmissionNo }

// FullName joins the name parts for display and documents.
func (s *Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentListRow is the flattened projection returned by the student grid,
// joining class and section names for display.
type StudentListRow struct {
	Student
	ClassName   string `db:"class_name" json:"class_name"`
	SectionName string `db:"section_name" json:"section_name"`
}
