package consultation

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/legalconnect/legalconnect-server/cmd/models"
	"gorm.io/gorm"
)

// Engine owns the booking state machine between a client and a lawyer.
// The clock is injectable so the past-due sweep is testable.
type Engine struct {
	db  *gorm.DB
	now func() time.Time
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db, now: time.Now}
}

var allowedStatusUpdates = map[string]bool{
	models.ConsultationPending:   true,
	models.ConsultationAccepted:  true,
	models.ConsultationRejected:  true,
	models.ConsultationCompleted: true,
}

// combineDateTime applies an "HH:MM" string to a date. Missing or malformed
// components default to zero, matching how bookings have always been stored.
func combineDateTime(date time.Time, timeStr string) time.Time {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	hours := 0
	minutes := 0
	if len(parts) > 0 {
		if h, err := strconv.Atoi(parts[0]); err == nil {
			hours = h
		}
	}
	if len(parts) > 1 {
		if m, err := strconv.Atoi(parts[1]); err == nil {
			minutes = m
		}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, 0, 0, date.Location())
}

// SweepPastDue promotes accepted consultations whose scheduled date+time has
// passed to completed. Runs opportunistically before any list query.
func (e *Engine) SweepPastDue() error {
	var accepted []models.Consultation
	if err := e.db.Where("status = ?", models.ConsultationAccepted).Find(&accepted).Error; err != nil {
		return models.NewInternalError(err)
	}

	now := e.now()
	for _, c := range accepted {
		if !combineDateTime(c.Date, c.Time).After(now) {
			if err := e.db.Model(&models.Consultation{}).Where("id = ?", c.ID).
				UpdateColumn("status", models.ConsultationCompleted).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
	}
	return nil
}

func (e *Engine) Schedule(clientID, lawyerID uint, date time.Time, timeStr, consultationType, notes string) (*models.Consultation, error) {
	if date.IsZero() || strings.TrimSpace(timeStr) == "" || strings.TrimSpace(consultationType) == "" {
		return nil, models.NewValidationError("Date, time, and consultation type are required")
	}

	var lawyer models.Lawyer
	if err := e.db.First(&lawyer, lawyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Lawyer")
		}
		return nil, models.NewInternalError(err)
	}

	consultation := models.Consultation{
		LawyerID: lawyerID,
		ClientID: clientID,
		Date:     date,
		Time:     timeStr,
		Type:     consultationType,
		Notes:    notes,
		Status:   models.ConsultationPending,
	}
	if err := e.db.Create(&consultation).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &consultation, nil
}

// UpdateStatus lets the booking's lawyer move it to pending, accepted,
// rejected or completed. Acceptance flags the booking unread for the client.
func (e *Engine) UpdateStatus(consultationID, actingUserID uint, status string) (*models.Consultation, error) {
	if !allowedStatusUpdates[status] {
		return nil, models.NewValidationError("Invalid status")
	}

	consultation, err := e.load(consultationID)
	if err != nil {
		return nil, err
	}

	if consultation.Lawyer == nil || consultation.Lawyer.UserID != actingUserID {
		return nil, models.NewAuthorizationError("Not authorized to update this consultation")
	}

	consultation.Status = status
	if status == models.ConsultationAccepted {
		consultation.UnreadByClient = true
	}
	if err := e.db.Save(consultation).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return consultation, nil
}

// Cancel ends a pending or accepted booking. A client cancelling an unpaid
// booking removes the record entirely; every other path keeps it with status
// "cancelled". The returned flag reports whether the record was deleted.
func (e *Engine) Cancel(consultationID, actingUserID uint) (*models.Consultation, bool, error) {
	consultation, err := e.load(consultationID)
	if err != nil {
		return nil, false, err
	}

	isLawyer := consultation.Lawyer != nil && consultation.Lawyer.UserID == actingUserID
	isClient := consultation.ClientID == actingUserID
	if !isLawyer && !isClient {
		return nil, false, models.NewAuthorizationError("Not authorized to cancel this consultation")
	}

	if consultation.Status != models.ConsultationPending && consultation.Status != models.ConsultationAccepted {
		return nil, false, models.NewInvalidStateError("Consultation cannot be cancelled in its current status")
	}

	if isClient && !consultation.Paid {
		if err := e.db.Unscoped().Select("RescheduleRequests").Delete(consultation).Error; err != nil {
			return nil, false, models.NewInternalError(err)
		}
		return consultation, true, nil
	}

	consultation.Status = models.ConsultationCancelled
	if isLawyer {
		consultation.UnreadByClient = true
	}
	if err := e.db.Save(consultation).Error; err != nil {
		return nil, false, models.NewInternalError(err)
	}
	return consultation, false, nil
}

// Reschedule records the one allowed date/time change on a paid booking.
// A lawyer's proposal takes effect immediately (accepted, unread for the
// client); a client's proposal drops the booking back to pending until the
// lawyer accepts again.
func (e *Engine) Reschedule(consultationID, actingUserID uint, date time.Time, timeStr, message string) (*models.Consultation, error) {
	if date.IsZero() || strings.TrimSpace(timeStr) == "" {
		return nil, models.NewValidationError("Date and time are required for rescheduling")
	}

	consultation, err := e.load(consultationID)
	if err != nil {
		return nil, err
	}

	if !consultation.Paid {
		return nil, models.NewInvalidStateError("Only paid consultations can be rescheduled")
	}
	if consultation.Status != models.ConsultationPending && consultation.Status != models.ConsultationAccepted {
		return nil, models.NewInvalidStateError("Consultation cannot be rescheduled in its current status")
	}
	if len(consultation.RescheduleRequests) >= 1 {
		return nil, models.NewInvalidStateError("Only one reschedule is allowed per consultation")
	}

	isLawyer := consultation.Lawyer != nil && consultation.Lawyer.UserID == actingUserID
	isClient := consultation.ClientID == actingUserID
	if !isLawyer && !isClient {
		return nil, models.NewAuthorizationError("Not authorized to reschedule this consultation")
	}

	if message == "" {
		if isLawyer {
			message = "Reschedule requested by lawyer."
		} else {
			message = "Reschedule requested by client."
		}
	}

	request := models.RescheduleRequest{
		ConsultationID: consultation.ID,
		Date:           date,
		Time:           timeStr,
		Message:        message,
		RequestedBy:    actingUserID,
	}

	consultation.Date = date
	consultation.Time = timeStr
	consultation.Message = message
	if isLawyer {
		consultation.Status = models.ConsultationAccepted
		consultation.UnreadByClient = true
	} else {
		consultation.Status = models.ConsultationPending
	}

	tx := e.db.Begin()
	if err := tx.Create(&request).Error; err != nil {
		tx.Rollback()
		return nil, models.NewInternalError(err)
	}
	if err := tx.Save(consultation).Error; err != nil {
		tx.Rollback()
		return nil, models.NewInternalError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	consultation.RescheduleRequests = append(consultation.RescheduleRequests, request)
	return consultation, nil
}

// ListForLawyer returns the lawyer's bookings with client display info.
// Only the lawyer's own account may read them.
func (e *Engine) ListForLawyer(lawyerID, actingUserID uint) ([]LawyerConsultationView, error) {
	if err := e.SweepPastDue(); err != nil {
		return nil, err
	}

	var lawyer models.Lawyer
	if err := e.db.First(&lawyer, lawyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Lawyer profile")
		}
		return nil, models.NewInternalError(err)
	}
	if lawyer.UserID != actingUserID {
		return nil, models.NewAuthorizationError("Not authorized to view these consultations")
	}

	var consultations []models.Consultation
	if err := e.db.Where("lawyer_id = ?", lawyerID).
		Preload("Client").Preload("RescheduleRequests").
		Order("created_at DESC").
		Find(&consultations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	views := make([]LawyerConsultationView, 0, len(consultations))
	for i := range consultations {
		views = append(views, formatForLawyer(&consultations[i]))
	}
	return views, nil
}

// ListForClient returns the client's bookings with lawyer display info and
// the fee the payment flow shows.
func (e *Engine) ListForClient(clientID uint) ([]ClientConsultationView, error) {
	if err := e.SweepPastDue(); err != nil {
		return nil, err
	}

	var consultations []models.Consultation
	if err := e.db.Where("client_id = ?", clientID).
		Preload("Lawyer").Preload("Lawyer.User").Preload("RescheduleRequests").
		Order("created_at DESC").
		Find(&consultations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	views := make([]ClientConsultationView, 0, len(consultations))
	for i := range consultations {
		views = append(views, formatForClient(&consultations[i]))
	}
	return views, nil
}

func (e *Engine) UnreadCountForClient(clientID uint) (int64, error) {
	var count int64
	if err := e.db.Model(&models.Consultation{}).
		Where("client_id = ? AND unread_by_client = ?", clientID, true).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (e *Engine) MarkAllReadForClient(clientID uint) error {
	if err := e.db.Model(&models.Consultation{}).
		Where("client_id = ?", clientID).
		UpdateColumn("unread_by_client", false).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (e *Engine) load(consultationID uint) (*models.Consultation, error) {
	var consultation models.Consultation
	err := e.db.Preload("Lawyer").Preload("RescheduleRequests").First(&consultation, consultationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Consultation")
		}
		return nil, models.NewInternalError(err)
	}
	return &consultation, nil
}
