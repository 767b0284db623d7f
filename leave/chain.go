package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// EmployeeDirectory resolves employees by id.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id generic.EmployeeID) (Employee, error)
}

// ResolveChain walks the management chain upward starting at managerID and
// returns it immediate manager first. A manager that no longer exists ends
// the walk. A chain that revisits an employee is a configuration fault.
func ResolveChain(ctx context.Context, dir EmployeeDirectory, managerID *generic.EmployeeID) ([]Employee, error) {
	var chain []Employee
	visited := make(map[generic.EmployeeID]bool)

	for next := managerID; next != nil; {
		if visited[*next] {
			return chain, ErrManagerCycle.With("management chain revisits employee %s", *next)
		}
		visited[*next] = true

		m, err := dir.GetEmployee(ctx, *next)
		if err != nil {
			if errors.Is(err, ErrEmployeeNotFound) {
				break
			}
			return chain, fmt.Errorf("resolve manager %s: %w", *next, err)
		}
		chain = append(chain, m)
		next = m.ManagerID
	}
	return chain, nil
}
