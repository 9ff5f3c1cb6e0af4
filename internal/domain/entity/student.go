package entity

import "time"

// Student is the ledger side of the model: balance is the running total of
// all completed payments and is only ever changed through ApplyPayment.
type Student struct {
	studentID string
	firstName string
	lastName  string
	year      int
	gender    string
	balance   float64
	createdAt time.Time
	updatedAt time.Time
}

func NewStudent(studentID, firstName, lastName string, year int, gender string) *Student {
	now := time.Now().UTC()
	return &Student{
		studentID: studentID,
		firstName: firstName,
		lastName:  lastName,
		year:      year,
		gender:    gender,
		balance:   0,
		createdAt: now,
		updatedAt: now,
	}
}

func ReconstructStudent(
	studentID, firstName, lastName string,
	year int,
	gender string,
	balance float64,
	createdAt, updatedAt time.Time,
) *Student {
	return &Student{
		studentID: studentID,
		firstName: firstName,
		lastName:  lastName,
		year:      year,
		gender:    gender,
		balance:   balance,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (s *Student) StudentID() string {
	return s.studentID
}

func (s *Student) FirstName() string {
	return s.firstName
}

func (s *Student) LastName() string {
	return s.lastName
}

func (s *Student) Year() int {
	return s.year
}

func (s *Student) Gender() string {
	return s.gender
}

func (s *Student) Balance() float64 {
	return s.balance
}

func (s *Student) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Student) UpdatedAt() time.Time {
	return s.updatedAt
}

// ApplyPayment adds amount to the balance as-is. Negative amounts are
// reversals; no clamping to zero happens here.
func (s *Student) ApplyPayment(amount float64) {
	s.balance += amount
	s.updatedAt = time.Now().UTC()
}
