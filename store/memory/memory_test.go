package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

func date(s string) generic.TimePoint { return generic.MustParseDate(s) }

func request(id generic.RequestID, status leave.Status, halfDay bool, applied, from, to string) (leave.LeaveRequest, []leave.LeaveRequestDay) {
	req := leave.LeaveRequest{
		ID: id, EmployeeID: "emp", TypeID: "cl", HalfDay: halfDay,
		FromDate: date(from), ToDate: date(to), ApplyDate: date(applied), Status: status,
	}
	var days []leave.LeaveRequestDay
	for _, d := range (generic.Period{Start: req.FromDate, End: req.ToDate}).Days() {
		days = append(days, leave.LeaveRequestDay{ID: string(id) + d.String(), RequestID: id, Date: d})
	}
	return req, days
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN
	ctx := context.Background()
	m := memory.New()
	require.NoError(t, m.PutBalance(ctx, leave.LeaveBalance{EmployeeID: "emp", TypeID: "cl", Balance: generic.Days(5)}))

	// WHEN
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx leave.Store) error {
		if err := tx.PutBalance(ctx, leave.LeaveBalance{EmployeeID: "emp", TypeID: "cl", Balance: generic.Days(1)}); err != nil {
			return err
		}
		req, days := request("r1", leave.StatusOpen, false, "2024-01-01", "2024-01-10", "2024-01-10")
		if err := tx.CreateRequest(ctx, req, days); err != nil {
			return err
		}
		return boom
	})

	// THEN
	assert.ErrorIs(t, err, boom)
	b, err := m.GetBalance(ctx, "emp", "cl")
	require.NoError(t, err)
	assert.Equal(t, "5", b.Balance.String())
	_, err = m.GetRequest(ctx, "r1")
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func TestWithTx_Commits(t *testing.T) {
	ctx := context.Background()
	m := memory.New()

	err := m.WithTx(ctx, func(tx leave.Store) error {
		return tx.PutBalance(ctx, leave.LeaveBalance{EmployeeID: "emp", TypeID: "cl", Balance: generic.MustParseAmount("2.345")})
	})

	require.NoError(t, err)
	b, err := m.GetBalance(ctx, "emp", "cl")
	require.NoError(t, err)
	assert.Equal(t, "2.35", b.Balance.String(), "balances are stored rounded")
}

func TestGetBalance_Missing(t *testing.T) {
	_, err := memory.New().GetBalance(context.Background(), "emp", "cl")

	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
	assert.True(t, generic.IsNotFound(err))
}

func TestReservedDays(t *testing.T) {
	// GIVEN
	ctx := context.Background()
	m := memory.New()
	for _, r := range []struct {
		id                generic.RequestID
		status            leave.Status
		halfDay           bool
		applied, from, to string
	}{
		{"future", leave.StatusOpen, false, "2024-01-01", "2024-01-10", "2024-01-12"},
		{"retro", leave.StatusOpen, false, "2024-01-05", "2024-01-04", "2024-01-05"},
		{"half", leave.StatusOpen, true, "2024-01-01", "2024-01-15", "2024-01-15"},
		{"approved", leave.StatusApproved, false, "2024-01-01", "2024-01-20", "2024-01-20"},
	} {
		req, days := request(r.id, r.status, r.halfDay, r.applied, r.from, r.to)
		require.NoError(t, m.CreateRequest(ctx, req, days))
	}

	// WHEN
	all, err := m.ReservedDays(ctx, leave.ReservationQuery{EmployeeID: "emp", TypeIDs: []generic.LeaveTypeID{"cl"}})
	require.NoError(t, err)
	retro, err := m.ReservedDays(ctx, leave.ReservationQuery{EmployeeID: "emp", TypeIDs: []generic.LeaveTypeID{"cl"}, RetroactiveOnly: true})
	require.NoError(t, err)

	// THEN
	assert.Equal(t, leave.Reservation{FullDays: 5, HalfDays: 1}, all)
	assert.Equal(t, "5.5", all.Amount().String())
	assert.Equal(t, leave.Reservation{FullDays: 2}, retro)
}

func TestAppliedDates_IgnoresClosedRequests(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	open, openDays := request("open", leave.StatusOpen, false, "2024-01-01", "2024-01-10", "2024-01-11")
	rejected, rejectedDays := request("rejected", leave.StatusRejected, false, "2024-01-01", "2024-01-12", "2024-01-12")
	require.NoError(t, m.CreateRequest(ctx, open, openDays))
	require.NoError(t, m.CreateRequest(ctx, rejected, rejectedDays))

	got, err := m.AppliedDates(ctx, "emp", "cl", []generic.TimePoint{date("2024-01-11"), date("2024-01-12"), date("2024-01-10")})

	require.NoError(t, err)
	assert.Equal(t, []generic.TimePoint{date("2024-01-10"), date("2024-01-11")}, got)
}

func TestUpdateRequestStatus(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	req, days := request("r1", leave.StatusOpen, false, "2024-01-01", "2024-01-10", "2024-01-10")
	require.NoError(t, m.CreateRequest(ctx, req, days))

	require.NoError(t, m.UpdateRequestStatus(ctx, "r1", leave.StatusApproved, "mgr"))
	got, err := m.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, generic.EmployeeID("mgr"), got.ProcessedBy)

	err = m.UpdateRequestStatus(ctx, "r1", leave.StatusOpen, "mgr")
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)

	err = m.UpdateRequestStatus(ctx, "missing", leave.StatusApproved, "mgr")
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func TestNotify(t *testing.T) {
	m := memory.New()

	require.NoError(t, m.Notify(context.Background(), []generic.EmployeeID{"mgr", "boss"}, "hello"))

	assert.Equal(t, []memory.Notification{
		{EmployeeID: "mgr", Message: "hello"},
		{EmployeeID: "boss", Message: "hello"},
	}, m.Notifications())
}
