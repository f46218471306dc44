package consultation

import (
	"testing"
	"time"

	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Lawyer{},
		&models.Consultation{},
		&models.RescheduleRequest{},
		&models.Transaction{},
	))

	return NewEngine(db)
}

type fixture struct {
	clientID     uint
	lawyerID     uint
	lawyerUserID uint
}

func seedParties(t *testing.T, e *Engine) fixture {
	t.Helper()

	client := models.User{Name: "Akua", Email: "akua@example.com", PasswordHash: "x", Role: "client"}
	require.NoError(t, e.db.Create(&client).Error)

	lawyerUser := models.User{Name: "Kwame", Email: "kwame@example.com", PasswordHash: "x", Role: "lawyer"}
	require.NoError(t, e.db.Create(&lawyerUser).Error)

	lawyer := models.Lawyer{UserID: lawyerUser.ID, Specialty: "Family Law", ConsultationFee: 150}
	require.NoError(t, e.db.Create(&lawyer).Error)

	return fixture{clientID: client.ID, lawyerID: lawyer.ID, lawyerUserID: lawyerUser.ID}
}

func futureDate() time.Time {
	return time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
}

func TestScheduleValidation(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	_, err := e.Schedule(f.clientID, f.lawyerID, time.Time{}, "10:00", "video", "")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	_, err = e.Schedule(f.clientID, f.lawyerID, futureDate(), "", "video", "")
	require.Error(t, err)

	_, err = e.Schedule(f.clientID, 999, futureDate(), "10:00", "video", "")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestScheduleCreatesPending(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "custody question")
	require.NoError(t, err)
	assert.Equal(t, models.ConsultationPending, c.Status)
	assert.False(t, c.Paid)
	assert.False(t, c.UnreadByClient)
}

func TestUpdateStatusLawyerOnly(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)

	_, err = e.UpdateStatus(c.ID, f.clientID, models.ConsultationAccepted)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeAuthorization, appErr.Code)

	updated, err := e.UpdateStatus(c.ID, f.lawyerUserID, models.ConsultationAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.ConsultationAccepted, updated.Status)
	assert.True(t, updated.UnreadByClient)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)

	_, err = e.UpdateStatus(c.ID, f.lawyerUserID, "postponed")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	// The retired status can never be written back.
	_, err = e.UpdateStatus(c.ID, f.lawyerUserID, models.ConsultationRescheduled)
	require.Error(t, err)
}

func TestClientCancelUnpaidDeletesRecord(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)

	_, deleted, err := e.Cancel(c.ID, f.clientID)
	require.NoError(t, err)
	assert.True(t, deleted)

	var count int64
	e.db.Unscoped().Model(&models.Consultation{}).Where("id = ?", c.ID).Count(&count)
	assert.Zero(t, count)
}

func TestClientCancelPaidKeepsRecord(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(c).UpdateColumn("paid", true).Error)

	cancelled, deleted, err := e.Cancel(c.ID, f.clientID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, models.ConsultationCancelled, cancelled.Status)

	var stored models.Consultation
	require.NoError(t, e.db.First(&stored, c.ID).Error)
	assert.Equal(t, models.ConsultationCancelled, stored.Status)
}

func TestLawyerCancelKeepsRecordAndFlagsUnread(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)

	cancelled, deleted, err := e.Cancel(c.ID, f.lawyerUserID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, models.ConsultationCancelled, cancelled.Status)
	assert.True(t, cancelled.UnreadByClient)
}

func TestCancelRequiresParticipant(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	stranger := models.User{Name: "Yaw", Email: "yaw@example.com", PasswordHash: "x"}
	require.NoError(t, e.db.Create(&stranger).Error)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)

	_, _, err = e.Cancel(c.ID, stranger.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeAuthorization, appErr.Code)
}

func TestCancelCompletedIsInvalid(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(c).UpdateColumn("status", models.ConsultationCompleted).Error)

	_, _, err = e.Cancel(c.ID, f.clientID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeInvalidState, appErr.Code)
}

func TestRescheduleRequiresPayment(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)

	_, err = e.Reschedule(c.ID, f.clientID, futureDate().AddDate(0, 0, 1), "14:00", "")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeInvalidState, appErr.Code)
}

func TestRescheduleByClientDropsToPending(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(c).Updates(map[string]interface{}{
		"paid": true, "status": models.ConsultationAccepted,
	}).Error)

	newDate := futureDate().AddDate(0, 0, 3)
	updated, err := e.Reschedule(c.ID, f.clientID, newDate, "14:00", "work conflict")
	require.NoError(t, err)
	assert.Equal(t, models.ConsultationPending, updated.Status)
	assert.Equal(t, "14:00", updated.Time)
	assert.Len(t, updated.RescheduleRequests, 1)
}

func TestRescheduleByLawyerStaysAcceptedAndUnread(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(c).Updates(map[string]interface{}{
		"paid": true, "status": models.ConsultationAccepted,
	}).Error)

	updated, err := e.Reschedule(c.ID, f.lawyerUserID, futureDate().AddDate(0, 0, 2), "09:30", "")
	require.NoError(t, err)
	assert.Equal(t, models.ConsultationAccepted, updated.Status)
	assert.True(t, updated.UnreadByClient)
}

func TestRescheduleOnlyOnce(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(c).Updates(map[string]interface{}{
		"paid": true, "status": models.ConsultationAccepted,
	}).Error)

	_, err = e.Reschedule(c.ID, f.lawyerUserID, futureDate().AddDate(0, 0, 2), "09:30", "")
	require.NoError(t, err)

	_, err = e.Reschedule(c.ID, f.lawyerUserID, futureDate().AddDate(0, 0, 4), "11:00", "")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeInvalidState, appErr.Code)
}

func TestSweepCompletesPastDueAccepted(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	past, err := e.Schedule(f.clientID, f.lawyerID, time.Now().AddDate(0, 0, -1), "10:00", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(past).UpdateColumn("status", models.ConsultationAccepted).Error)

	future, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(future).UpdateColumn("status", models.ConsultationAccepted).Error)

	stillPending, err := e.Schedule(f.clientID, f.lawyerID, time.Now().AddDate(0, 0, -1), "10:00", "video", "")
	require.NoError(t, err)

	require.NoError(t, e.SweepPastDue())

	var stored models.Consultation
	require.NoError(t, e.db.First(&stored, past.ID).Error)
	assert.Equal(t, models.ConsultationCompleted, stored.Status)

	stored = models.Consultation{}
	require.NoError(t, e.db.First(&stored, future.ID).Error)
	assert.Equal(t, models.ConsultationAccepted, stored.Status)

	// Pending bookings never auto-complete, even when past due.
	stored = models.Consultation{}
	require.NoError(t, e.db.First(&stored, stillPending.ID).Error)
	assert.Equal(t, models.ConsultationPending, stored.Status)
}

func TestSweepUsesClock(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	c, err := e.Schedule(f.clientID, f.lawyerID, day, "15:30", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(c).UpdateColumn("status", models.ConsultationAccepted).Error)

	e.now = func() time.Time { return time.Date(2026, 8, 28, 15, 29, 0, 0, time.UTC) }
	require.NoError(t, e.SweepPastDue())
	var stored models.Consultation
	require.NoError(t, e.db.First(&stored, c.ID).Error)
	assert.Equal(t, models.ConsultationAccepted, stored.Status)

	// At the scheduled minute the booking counts as held.
	e.now = func() time.Time { return time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC) }
	require.NoError(t, e.SweepPastDue())
	require.NoError(t, e.db.First(&stored, c.ID).Error)
	assert.Equal(t, models.ConsultationCompleted, stored.Status)
}

func TestListForClientTranslatesLegacyStatus(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)
	require.NoError(t, e.db.Model(c).UpdateColumn("status", models.ConsultationRescheduled).Error)

	views, err := e.ListForClient(f.clientID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.ConsultationAccepted, views[0].Status)
	assert.Equal(t, "Family Law", views[0].Lawyer.Specialty)
	assert.Equal(t, float64(150), views[0].Lawyer.Fee)
}

func TestListForLawyerAuthorization(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	_, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)

	_, err = e.ListForLawyer(f.lawyerID, f.clientID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeAuthorization, appErr.Code)

	views, err := e.ListForLawyer(f.lawyerID, f.lawyerUserID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Akua", views[0].Client.Name)
}

func TestUnreadBookkeeping(t *testing.T) {
	e := newTestEngine(t)
	f := seedParties(t, e)

	c1, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "10:00", "video", "")
	require.NoError(t, err)
	c2, err := e.Schedule(f.clientID, f.lawyerID, futureDate(), "11:00", "video", "")
	require.NoError(t, err)

	_, err = e.UpdateStatus(c1.ID, f.lawyerUserID, models.ConsultationAccepted)
	require.NoError(t, err)
	_, err = e.UpdateStatus(c2.ID, f.lawyerUserID, models.ConsultationAccepted)
	require.NoError(t, err)

	count, err := e.UnreadCountForClient(f.clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, e.MarkAllReadForClient(f.clientID))

	count, err = e.UnreadCountForClient(f.clientID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCombineDateTimeDefaultsMalformedParts(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC), combineDateTime(day, "09:15"))
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), combineDateTime(day, "09"))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), combineDateTime(day, "bad"))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC), combineDateTime(day, "xx:30"))
}
