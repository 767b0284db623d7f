package leave_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

func intp(n int) *int { return &n }

func date(s string) generic.TimePoint { return generic.MustParseDate(s) }

func datep(s string) *generic.TimePoint {
	d := date(s)
	return &d
}

func idp(id generic.EmployeeID) *generic.EmployeeID { return &id }

func genderp(g leave.Gender) *leave.Gender { return &g }

type recordingMailer struct {
	mu   sync.Mutex
	sent []leave.Mail
}

func (r *recordingMailer) Send(_ context.Context, m leave.Mail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingMailer) Sent() []leave.Mail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]leave.Mail(nil), r.sent...)
}

// Leave type ids used across the tests.
const (
	casualID      generic.LeaveTypeID = "cl"
	privilegeID   generic.LeaveTypeID = "pl"
	emergencyID   generic.LeaveTypeID = "el"
	maternityID   generic.LeaveTypeID = "ml"
	bereavementID generic.LeaveTypeID = "bl"
	wfhID         generic.LeaveTypeID = "wfh"
	rhID          generic.LeaveTypeID = "rh"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Memory
	engine *leave.Engine
	mailer *recordingMailer
}

// newFixture seeds a three level chain emp -> mgr -> boss, a male employee
// bob, and one leave type per category.
//
// Casual: notice of 3 days for up to 2 days, 7 days above that.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()

	store.AddEmployee(leave.Employee{ID: "boss", Code: "B001", FirstName: "Bea", LastName: "Boss",
		Email: "boss@example.com", Role: "SuperAdmin", Gender: genderp(leave.GenderFemale),
		JoiningDate: datep("2020-01-01"), Active: true})
	store.AddEmployee(leave.Employee{ID: "mgr", Code: "M001", FirstName: "Max", LastName: "Manager",
		Email: "mgr@example.com", Role: "Manager", Gender: genderp(leave.GenderMale),
		ManagerID: idp("boss"), JoiningDate: datep("2021-01-01"), Active: true})
	store.AddEmployee(leave.Employee{ID: "emp", Code: "E001", FirstName: "Ann", LastName: "Lee",
		Email: "ann@example.com", Phone: "555-0101", Role: "Employee", Gender: genderp(leave.GenderFemale),
		ManagerID: idp("mgr"), JoiningDate: datep("2023-01-01"), Active: true})
	store.AddEmployee(leave.Employee{ID: "bob", Code: "E002", FirstName: "Bob", LastName: "Ray",
		Email: "bob@example.com", Role: "Employee", Gender: genderp(leave.GenderMale),
		ManagerID: idp("mgr"), JoiningDate: datep("2023-01-01"), Active: true})

	notice := func(lt leave.LeaveType) leave.LeaveType {
		lt.DaysCheck, lt.DaysCheckMore, lt.DaysCheckEqualOrLess = intp(2), intp(7), intp(3)
		return lt
	}
	types := []leave.LeaveType{
		notice(leave.LeaveType{ID: casualID, Name: "Casual Leave", Category: leave.CategoryCasual, HalfDayAllowed: true}),
		notice(leave.LeaveType{ID: privilegeID, Name: "Privilege Leave", Category: leave.CategoryPrivilege,
			HalfDayAllowed: true, Sandwich: true, DutyDaysRequired: intp(180)}),
		notice(leave.LeaveType{ID: emergencyID, Name: "Emergency Leave", Category: leave.CategoryEmergency}),
		notice(leave.LeaveType{ID: maternityID, Name: "Maternity Leave", Category: leave.CategoryMaternity}),
		notice(leave.LeaveType{ID: bereavementID, Name: "Bereavement Leave", Category: leave.CategoryBereavement}),
		notice(leave.LeaveType{ID: wfhID, Name: "Work From Home", Category: leave.CategoryWorkFromHome}),
		{ID: rhID, Name: "Restricted Holiday", Category: leave.CategoryRestrictedHoliday,
			DaysCheck: intp(1), DaysCheckMore: intp(1), DaysCheckEqualOrLess: intp(1)},
	}
	for _, lt := range types {
		store.AddLeaveType(lt)
	}

	f := &fixture{t: t, ctx: context.Background(), store: store, mailer: &recordingMailer{}}
	balances := map[generic.LeaveTypeID]string{
		casualID: "10", privilegeID: "15", emergencyID: "0", maternityID: "90",
		bereavementID: "5", wfhID: "0", rhID: "2",
	}
	for _, emp := range []generic.EmployeeID{"emp", "bob", "mgr", "boss"} {
		for id, v := range balances {
			f.setBalance(emp, id, v)
		}
	}

	f.engine = leave.NewEngine(store, leave.Config{
		MailFrom:     "hr@example.com",
		MailFromName: "HR Desk",
		TopAdminRole: "SuperAdmin",
	}, zap.NewNop())
	f.engine.Notifier = store
	f.engine.Mailer = f.mailer
	return f
}

func (f *fixture) setBalance(emp generic.EmployeeID, typeID generic.LeaveTypeID, v string) {
	f.t.Helper()
	require.NoError(f.t, f.store.PutBalance(f.ctx, leave.LeaveBalance{
		EmployeeID: emp, TypeID: typeID, Balance: generic.MustParseAmount(v),
	}))
}

func (f *fixture) balance(emp generic.EmployeeID, typeID generic.LeaveTypeID) generic.Amount {
	f.t.Helper()
	b, err := f.store.GetBalance(f.ctx, emp, typeID)
	require.NoError(f.t, err)
	return b.Balance
}

func app(emp generic.EmployeeID, typeID generic.LeaveTypeID, from, to string) leave.Application {
	return leave.Application{EmployeeID: emp, TypeID: typeID, FromDate: date(from), ToDate: date(to)}
}

func halfDay(a leave.Application) leave.Application {
	a.HalfDay = true
	return a
}

func (f *fixture) apply(today string, a leave.Application) (*leave.Result, error) {
	return f.engine.Apply(f.ctx, date(today), a)
}
