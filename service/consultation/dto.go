package consultation

import (
	"time"

	"github.com/legalconnect/legalconnect-server/cmd/models"
)

type PartyView struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	ProfileImage string  `json:"profileImage"`
	Specialty    string  `json:"specialty,omitempty"`
	Fee          float64 `json:"fee,omitempty"`
}

type LawyerConsultationView struct {
	ID              uint      `json:"id"`
	Date            time.Time `json:"date"`
	Time            string    `json:"time"`
	Type            string    `json:"type"`
	Notes           string    `json:"notes,omitempty"`
	Message         string    `json:"message,omitempty"`
	Status          string    `json:"status"`
	Paid            bool      `json:"paid"`
	RescheduleCount int       `json:"rescheduleCount"`
	CreatedAt       time.Time `json:"createdAt"`
	Client          PartyView `json:"client"`
}

type ClientConsultationView struct {
	ID              uint      `json:"id"`
	Date            time.Time `json:"date"`
	Time            string    `json:"time"`
	Type            string    `json:"type"`
	Notes           string    `json:"notes,omitempty"`
	Message         string    `json:"message,omitempty"`
	Status          string    `json:"status"`
	Paid            bool      `json:"paid"`
	Unread          bool      `json:"unread"`
	RescheduleCount int       `json:"rescheduleCount"`
	CreatedAt       time.Time `json:"createdAt"`
	Lawyer          PartyView `json:"lawyer"`
}

// displayStatus maps the retired "rescheduled" status onto "accepted" so
// clients never see it; rows carrying it predate the single-status flow.
func displayStatus(status string) string {
	if status == models.ConsultationRescheduled {
		return models.ConsultationAccepted
	}
	return status
}

func formatForLawyer(c *models.Consultation) LawyerConsultationView {
	view := LawyerConsultationView{
		ID:              c.ID,
		Date:            c.Date,
		Time:            c.Time,
		Type:            c.Type,
		Notes:           c.Notes,
		Message:         c.Message,
		Status:          displayStatus(c.Status),
		Paid:            c.Paid,
		RescheduleCount: len(c.RescheduleRequests),
		CreatedAt:       c.CreatedAt,
	}
	if c.Client != nil {
		view.Client = PartyView{
			ID:           c.Client.ID,
			Name:         c.Client.Name,
			ProfileImage: c.Client.ProfileImage,
		}
	}
	return view
}

func formatForClient(c *models.Consultation) ClientConsultationView {
	view := ClientConsultationView{
		ID:              c.ID,
		Date:            c.Date,
		Time:            c.Time,
		Type:            c.Type,
		Notes:           c.Notes,
		Message:         c.Message,
		Status:          displayStatus(c.Status),
		Paid:            c.Paid,
		Unread:          c.UnreadByClient,
		RescheduleCount: len(c.RescheduleRequests),
		CreatedAt:       c.CreatedAt,
	}
	if c.Lawyer != nil {
		view.Lawyer = PartyView{
			ID:        c.Lawyer.ID,
			Specialty: c.Lawyer.Specialty,
			Fee:       c.Lawyer.ConsultationFee,
		}
		if c.Lawyer.User != nil {
			view.Lawyer.Name = c.Lawyer.User.Name
			view.Lawyer.ProfileImage = c.Lawyer.User.ProfileImage
		}
	}
	return view
}
