package leave_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func TestApply_RecordsRequestWithExpandedDays(t *testing.T) {
	// GIVEN: Friday to Monday without sandwich
	f := newFixture(t)

	// WHEN
	res, err := f.apply("2024-01-01", app("emp", casualID, "2024-01-12", "2024-01-15"))

	// THEN: only the working days are recorded
	require.NoError(t, err)
	assert.Equal(t, leave.StatusOpen, res.Request.Status)
	assert.Equal(t, date("2024-01-01"), res.Request.ApplyDate)
	assert.Equal(t, generic.EmployeeID("emp"), res.Request.ProcessedBy)

	rng, err := leave.Expand(f.ctx, f.store, date("2024-01-12"), date("2024-01-15"), false)
	require.NoError(t, err)
	stored, err := f.store.RequestDays(f.ctx, res.Request.ID)
	require.NoError(t, err)
	require.Len(t, stored, rng.Count)
	for i, d := range stored {
		assert.True(t, d.Date.Equal(rng.Dates[i]), "day %d", i)
		assert.Equal(t, res.Request.ID, d.RequestID)
	}
	assert.Len(t, stored, 2)

	// AND: the stored balance is untouched, the virtual balance is reduced
	assert.True(t, f.balance("emp", casualID).Equal(generic.Days(10)))
	snap, err := f.engine.Balance(f.ctx, "emp", casualID)
	require.NoError(t, err)
	assert.True(t, snap.Virtual.Equal(generic.Days(8)))
}

func TestApply_SandwichCountsInnerWeekend(t *testing.T) {
	f := newFixture(t)

	res, err := f.apply("2024-01-01", app("emp", privilegeID, "2024-01-12", "2024-01-15"))

	require.NoError(t, err)
	assert.Len(t, res.Days, 4)
}

func TestApply_EvaluateDoesNotRejectItself(t *testing.T) {
	// GIVEN
	f := newFixture(t)
	a := app("emp", casualID, "2024-01-10", "2024-01-11")

	// WHEN: evaluating twice records nothing
	for i := 0; i < 2; i++ {
		d, err := f.engine.Evaluate(f.ctx, date("2024-01-01"), a)
		require.NoError(t, err)
		assert.True(t, d.Admitted, "evaluation %d", i)
	}

	// THEN: the first real application is admitted, the second overlaps it
	_, err := f.apply("2024-01-01", a)
	require.NoError(t, err)

	_, err = f.apply("2024-01-01", app("emp", casualID, "2024-01-11", "2024-01-12"))
	assert.ErrorIs(t, err, leave.ErrDateAlreadyApplied)
	assert.Contains(t, err.Error(), "2024-01-11")
}

func TestApply_SameDatesOtherTypeAllowed(t *testing.T) {
	f := newFixture(t)
	_, err := f.apply("2024-01-01", app("emp", casualID, "2024-01-10", "2024-01-10"))
	require.NoError(t, err)

	_, err = f.apply("2024-01-01", app("emp", privilegeID, "2024-01-10", "2024-01-10"))
	assert.NoError(t, err)
}

func TestApply_RejectionsAreClassified(t *testing.T) {
	tests := []struct {
		name  string
		today string
		app   leave.Application
		want  error
		kind  generic.Kind
	}{
		{"short notice", "2024-01-01", app("emp", casualID, "2024-01-02", "2024-01-02"), leave.ErrNoticeTooShort, generic.PolicyViolation},
		{"male maternity", "2024-01-01", app("bob", maternityID, "2024-01-10", "2024-01-11"), leave.ErrGenderCategoryMismatch, generic.PolicyViolation},
		{"future bereavement", "2024-01-01", app("emp", bereavementID, "2024-01-10", "2024-01-10"), leave.ErrInvalidDateSelection, generic.PolicyViolation},
		{"weekend only", "2024-01-01", app("emp", casualID, "2024-01-13", "2024-01-14"), leave.ErrZeroDayRequest, generic.PolicyViolation},
		{"reversed range", "2024-01-01", app("emp", casualID, "2024-01-11", "2024-01-10"), leave.ErrInvalidRange, generic.ValidationFailure},
		{"unknown employee", "2024-01-01", app("ghost", casualID, "2024-01-10", "2024-01-10"), leave.ErrEmployeeNotFound, generic.NotFound},
		{"unknown type", "2024-01-01", app("emp", "nope", "2024-01-10", "2024-01-10"), leave.ErrLeaveTypeNotFound, generic.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			res, err := f.apply(tt.today, tt.app)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, generic.KindOf(err))

			page, err := f.store.ListRequests(f.ctx, leave.RequestFilter{EmployeeID: tt.app.EmployeeID, Size: 10})
			require.NoError(t, err)
			assert.Zero(t, page.Total)
		})
	}
}

func TestApply_MissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Apply(f.ctx, date("2024-01-01"), leave.Application{EmployeeID: "emp", FromDate: date("2024-01-10"), ToDate: date("2024-01-10")})
	assert.Equal(t, generic.ValidationFailure, generic.KindOf(err))

	_, err = f.engine.Apply(f.ctx, date("2024-01-01"), leave.Application{EmployeeID: "emp", TypeID: casualID})
	assert.Equal(t, generic.ValidationFailure, generic.KindOf(err))
}

func TestApply_VirtualBalanceBlocksOverbooking(t *testing.T) {
	// GIVEN: two days of casual leave, both held by an open request
	f := newFixture(t)
	f.setBalance("emp", casualID, "2")
	_, err := f.apply("2024-01-01", app("emp", casualID, "2024-01-10", "2024-01-11"))
	require.NoError(t, err)

	// WHEN
	_, err = f.apply("2024-01-01", app("emp", casualID, "2024-01-17", "2024-01-17"))

	// THEN
	var ib *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.True(t, ib.Reserved.Equal(generic.Days(2)))
	assert.Equal(t, generic.InsufficientBalance, generic.KindOf(err))
}

func TestApply_HalfDayReservesHalf(t *testing.T) {
	f := newFixture(t)
	f.setBalance("emp", casualID, "1")

	_, err := f.apply("2024-01-01", halfDay(app("emp", casualID, "2024-01-10", "2024-01-10")))
	require.NoError(t, err)
	_, err = f.apply("2024-01-01", halfDay(app("emp", casualID, "2024-01-11", "2024-01-11")))
	require.NoError(t, err)

	snap, err := f.engine.Balance(f.ctx, "emp", casualID)
	require.NoError(t, err)
	assert.True(t, snap.Reserved.Equal(generic.Days(1)))
	assert.True(t, snap.Virtual.IsZero())

	_, err = f.apply("2024-01-01", halfDay(app("emp", casualID, "2024-01-12", "2024-01-12")))
	var ib *generic.InsufficientBalanceError
	assert.ErrorAs(t, err, &ib)
}

func TestApply_RetroactiveCasualBorrowsEmergency(t *testing.T) {
	// GIVEN: no emergency balance
	f := newFixture(t)

	// WHEN: casual leave filed after the fact
	_, err := f.apply("2024-01-10", app("emp", casualID, "2024-01-08", "2024-01-08"))

	// THEN: rejected on the emergency balance, not the casual one
	var ib *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, "Emergency Leave", ib.TypeName)
}

func TestApply_EmergencyReservationCountsRetroactiveRequestsOnly(t *testing.T) {
	// GIVEN: one emergency day and an open future casual request
	f := newFixture(t)
	f.setBalance("emp", emergencyID, "1")
	_, err := f.apply("2024-01-01", app("emp", casualID, "2024-01-22", "2024-01-23"))
	require.NoError(t, err)

	// WHEN: a retroactive casual day is filed
	res, err := f.apply("2024-01-10", app("emp", casualID, "2024-01-08", "2024-01-08"))

	// THEN: the future request did not consume the emergency day
	require.NoError(t, err)
	assert.True(t, res.Decision.Borrowed)
	assert.Equal(t, emergencyID, res.ChargedTo.ID)
	assert.Equal(t, casualID, res.Request.TypeID)

	// AND: a second retroactive day no longer fits
	_, err = f.apply("2024-01-10", app("emp", privilegeID, "2024-01-09", "2024-01-09"))
	var ib *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.Equal(t, "Emergency Leave", ib.TypeName)
}

func TestApply_RestrictedHoliday(t *testing.T) {
	f := newFixture(t)
	f.store.AddHoliday(generic.Holiday{ID: "h1", Date: date("2024-01-10"), Name: "Festival", Type: generic.RestrictedHoliday})

	_, err := f.apply("2024-01-01", app("emp", rhID, "2024-01-10", "2024-01-10"))
	require.NoError(t, err)

	_, err = f.apply("2024-01-01", app("emp", rhID, "2024-01-11", "2024-01-11"))
	assert.ErrorIs(t, err, leave.ErrRestrictedHolidayMismatch)
}

func TestApply_WorkFromHomeWithoutBalance(t *testing.T) {
	f := newFixture(t)

	res, err := f.apply("2024-01-01", app("emp", wfhID, "2024-01-10", "2024-01-10"))

	require.NoError(t, err)
	assert.Equal(t, leave.RouteWorkFromHome, res.Decision.Route)
}

func TestApply_Audited(t *testing.T) {
	f := newFixture(t)
	res, err := f.apply("2024-01-01", app("emp", casualID, "2024-01-10", "2024-01-10"))
	require.NoError(t, err)
	_, err = f.apply("2024-01-01", app("emp", casualID, "2024-01-02", "2024-01-02"))
	require.Error(t, err)

	emp := generic.EmployeeID("emp")
	entries, err := f.store.QueryAudit(f.ctx, generic.AuditFilter{EmployeeID: &emp})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, generic.AuditRequestAdmitted, entries[0].Action)
	assert.Equal(t, res.Request.ID, entries[0].RequestID)
	assert.Equal(t, string(leave.RouteFutureFullDay), entries[0].Payload["route"])

	assert.Equal(t, generic.AuditRequestRejected, entries[1].Action)
	assert.Equal(t, "NOTICE_TOO_SHORT", entries[1].Payload["code"])
}

// =============================================================================
// NOTIFICATIONS AND MAIL
// =============================================================================

func TestApply_NotifiesChainAndMailsManager(t *testing.T) {
	f := newFixture(t)

	res, err := f.apply("2024-01-01", app("emp", casualID, "2024-01-10", "2024-01-11"))
	require.NoError(t, err)

	// one in-app notification per manager, immediate manager first
	notes := f.store.Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, generic.EmployeeID("mgr"), notes[0].EmployeeID)
	assert.Equal(t, generic.EmployeeID("boss"), notes[1].EmployeeID)
	assert.Equal(t, "Leave 2024-01-10 to 2024-01-11 is applied by Ann Lee [Employee Code: E001]", notes[0].Message)

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	m := sent[0]
	assert.Equal(t, []string{"mgr@example.com"}, m.To)
	assert.Equal(t, []string{"boss@example.com"}, m.CC)
	assert.Equal(t, "hr@example.com", m.From)
	assert.Equal(t, "Leave Application for dates 2024-01-10 to 2024-01-11", m.Subject)
	assert.Contains(t, m.HTML, "Casual Leave")
	assert.Contains(t, m.HTML, "E001")
	assert.Equal(t, &m, res.Mail)
}

func TestApply_BorrowedRequestMailedUnderEmergencyName(t *testing.T) {
	f := newFixture(t)
	f.setBalance("emp", emergencyID, "2")

	_, err := f.apply("2024-01-10", app("emp", privilegeID, "2024-01-09", "2024-01-09"))
	require.NoError(t, err)

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].HTML, "Emergency Leave")
	assert.NotContains(t, sent[0].HTML, "Privilege Leave")
}

func TestApply_TopAdminMailsThemselves(t *testing.T) {
	f := newFixture(t)

	res, err := f.apply("2024-01-01", app("boss", casualID, "2024-01-10", "2024-01-10"))
	require.NoError(t, err)

	assert.Empty(t, res.Recipients)
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"boss@example.com"}, sent[0].To)
	assert.Empty(t, sent[0].CC)
}

func TestApply_NoManagerNoMail(t *testing.T) {
	f := newFixture(t)
	f.store.AddEmployee(leave.Employee{ID: "solo", FirstName: "Sol", Gender: genderp(leave.GenderMale),
		JoiningDate: datep("2023-01-01"), Active: true})
	f.setBalance("solo", casualID, "5")

	res, err := f.apply("2024-01-01", app("solo", casualID, "2024-01-10", "2024-01-10"))

	require.NoError(t, err)
	assert.Nil(t, res.Mail)
	assert.Empty(t, f.mailer.Sent())
}

type failingSink struct{}

func (failingSink) Notify(context.Context, []generic.EmployeeID, string) error {
	return errors.New("sink down")
}

func (failingSink) Send(context.Context, leave.Mail) error { return errors.New("smtp down") }

func TestApply_DeliveryFailuresDoNotUndoRequest(t *testing.T) {
	f := newFixture(t)
	f.engine.Notifier = failingSink{}
	f.engine.Mailer = failingSink{}

	res, err := f.apply("2024-01-01", app("emp", casualID, "2024-01-10", "2024-01-10"))

	require.NoError(t, err)
	stored, err := f.store.GetRequest(f.ctx, res.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusOpen, stored.Status)
}

func TestApply_ManagerCycleStillAdmits(t *testing.T) {
	// GIVEN: x -> y -> x
	f := newFixture(t)
	f.store.AddEmployee(leave.Employee{ID: "x", FirstName: "X", Email: "x@example.com", Gender: genderp(leave.GenderMale),
		ManagerID: idp("y"), JoiningDate: datep("2023-01-01"), Active: true})
	f.store.AddEmployee(leave.Employee{ID: "y", FirstName: "Y", Email: "y@example.com", Gender: genderp(leave.GenderMale),
		ManagerID: idp("x"), JoiningDate: datep("2023-01-01"), Active: true})
	f.setBalance("x", casualID, "5")

	// WHEN
	res, err := f.apply("2024-01-01", app("x", casualID, "2024-01-10", "2024-01-10"))

	// THEN: the request stands; the chain stops before the repeat
	require.NoError(t, err)
	require.Len(t, res.Recipients, 2)
	assert.Equal(t, generic.EmployeeID("y"), res.Recipients[0].ID)
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory_PagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	for _, d := range []string{"2024-01-10", "2024-01-11", "2024-01-12"} {
		_, err := f.apply("2024-01-01", app("emp", casualID, d, d))
		require.NoError(t, err)
	}

	page, err := f.engine.History(f.ctx, leave.RequestFilter{EmployeeID: "emp", Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Requests, 2)

	page, err = f.engine.History(f.ctx, leave.RequestFilter{EmployeeID: "emp", Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Requests, 1)

	approved := leave.StatusApproved
	page, err = f.engine.History(f.ctx, leave.RequestFilter{EmployeeID: "emp", Status: &approved, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = f.engine.History(f.ctx, leave.RequestFilter{EmployeeID: "ghost"})
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}
