package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ConsultationPending   = "pending"
	ConsultationAccepted  = "accepted"
	ConsultationCompleted = "completed"
	ConsultationRejected  = "rejected"
	ConsultationCancelled = "cancelled"

	// Legacy status still present in old rows; read as "accepted", never written.
	ConsultationRescheduled = "rescheduled"
)

type Consultation struct {
	gorm.Model
	LawyerID       uint      `gorm:"column:lawyer_id;not null;index" json:"lawyer_id"`
	ClientID       uint      `gorm:"column:client_id;not null;index" json:"client_id"`
	Date           time.Time `gorm:"column:date;not null" json:"date"`
	Time           string    `gorm:"column:time;size:5;not null" json:"time"`
	Type           string    `gorm:"column:type;size:50;not null" json:"type"`
	Notes          string    `gorm:"column:notes;type:text" json:"notes"`
	Message        string    `gorm:"column:message;type:text" json:"message"`
	Status         string    `gorm:"column:status;size:20;default:'pending'" json:"status"`
	Paid           bool      `gorm:"column:paid;default:false" json:"paid"`
	UnreadByClient bool      `gorm:"column:unread_by_client;default:false" json:"unread_by_client"`
	PaymentRef     string    `gorm:"column:payment_ref;size:255" json:"payment_ref,omitempty"`

	Lawyer             *Lawyer             `gorm:"foreignKey:LawyerID" json:"lawyer,omitempty"`
	Client             *User               `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	RescheduleRequests []RescheduleRequest `gorm:"foreignKey:ConsultationID" json:"reschedule_requests,omitempty"`
}

type RescheduleRequest struct {
	gorm.Model
	ConsultationID uint      `gorm:"column:consultation_id;not null;index" json:"consultation_id"`
	Date           time.Time `gorm:"column:date;not null" json:"date"`
	Time           string    `gorm:"column:time;size:5;not null" json:"time"`
	Message        string    `gorm:"column:message;type:text" json:"message"`
	RequestedBy    uint      `gorm:"column:requested_by;not null" json:"requested_by"`
}

type Transaction struct {
	gorm.Model
	UserID  uint    `gorm:"not null" json:"user_id"`
	Amount  float64 `gorm:"not null" json:"amount"`
	Method  string  `gorm:"size:50" json:"method"`
	Purpose string  `gorm:"size:255" json:"purpose"`
}
