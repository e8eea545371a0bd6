package order

// Workflow is the fixed status table of a storefront. A cycling workflow is
// advanced one step per admin click; a non-cycling one lets the admin pick any
// of its statuses directly.
type Workflow struct {
	Statuses []Status
	Cycle    bool
}

var (
	FoodWorkflow = Workflow{
		Statuses: []Status{StatusPending, StatusDispatched, StatusDelivered},
		Cycle:    true,
	}
	ChocolateWorkflow = Workflow{
		Statuses: []Status{StatusPending, StatusInProgress, StatusDispatched, StatusDelivered},
	}
)

func WorkflowFor(k Kind) Workflow {
	if k == KindChocolate {
		return ChocolateWorkflow
	}
	return FoodWorkflow
}

// Initial is the status every new order starts in.
func (w Workflow) Initial() Status {
	if len(w.Statuses) == 0 {
		return StatusPending
	}
	return w.Statuses[0]
}

// Next advances current one step around the table. Statuses outside the
// table reset to the initial state.
func (w Workflow) Next(current Status) Status {
	for i, s := range w.Statuses {
		if s == current {
			return w.Statuses[(i+1)%len(w.Statuses)]
		}
	}
	return w.Initial()
}

func (w Workflow) Allows(s Status) bool {
	for _, candidate := range w.Statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
