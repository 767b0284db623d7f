package notify

import (
	"context"
	"errors"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Fanout delivers to every sink. A failing sink does not stop the others;
// their errors are joined.
type Fanout []leave.NotificationSink

var _ leave.NotificationSink = Fanout(nil)

func (f Fanout) Notify(ctx context.Context, employeeIDs []generic.EmployeeID, message string) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, employeeIDs, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
