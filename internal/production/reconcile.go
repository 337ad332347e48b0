package production

import (
	"fmt"
)

// ExpenditureInput is a desired expenditure on update. A nil ID asks for a new row.
type ExpenditureInput struct {
	ID     *int64
	Name   string
	Amount int64
}

// Plan is the write-set that turns the persisted expenditures of a record
// into the desired ones. The three lists never share a row.
type Plan struct {
	Create []Expenditure
	Update []Expenditure
	Delete []int64
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Reconcile diffs desired against persisted.
//
// Entries with an ID update the persisted row with that ID; entries without
// one are created; persisted rows left unreferenced are deleted. Two
// refinements keep the plan minimal so that reconciling the same desired
// list again yields an empty plan:
//   - updates that would not change the row are dropped;
//   - a new entry identical to an otherwise unreferenced row keeps that row
//     instead of deleting it and inserting a copy.
//
// An ID that does not belong to persisted, or appears twice, is rejected.
func Reconcile(persisted []Expenditure, desired []ExpenditureInput) (Plan, error) {
	byID := make(map[int64]Expenditure, len(persisted))
	for _, e := range persisted {
		byID[e.ID] = e
	}

	var (
		plan       Plan
		fresh      []ExpenditureInput
		referenced = make(map[int64]struct{}, len(desired))
	)

	for _, d := range desired {
		if d.ID == nil {
			fresh = append(fresh, d)
			continue
		}

		cur, ok := byID[*d.ID]
		if !ok {
			return Plan{}, fmt.Errorf("%w: expenditure %d does not belong to this record", ErrValidation, *d.ID)
		}

		if _, dup := referenced[*d.ID]; dup {
			return Plan{}, fmt.Errorf("%w: expenditure %d listed more than once", ErrValidation, *d.ID)
		}

		referenced[*d.ID] = struct{}{}

		if cur.Name == d.Name && cur.Amount == d.Amount {
			continue
		}

		cur.Name = d.Name
		cur.Amount = d.Amount
		plan.Update = append(plan.Update, cur)
	}

	for _, d := range fresh {
		if id, ok := unreferencedMatch(persisted, referenced, d); ok {
			referenced[id] = struct{}{}
			continue
		}

		plan.Create = append(plan.Create, Expenditure{Name: d.Name, Amount: d.Amount})
	}

	for _, e := range persisted {
		if _, ok := referenced[e.ID]; ok {
			continue
		}

		plan.Delete = append(plan.Delete, e.ID)
	}

	return plan, nil
}

func unreferencedMatch(persisted []Expenditure, referenced map[int64]struct{}, d ExpenditureInput) (int64, bool) {
	for _, e := range persisted {
		if _, taken := referenced[e.ID]; taken {
			continue
		}

		if e.Name == d.Name && e.Amount == d.Amount {
			return e.ID, true
		}
	}

	return 0, false
}

// Apply returns the expenditures that result from executing the plan on
// persisted. Created rows carry whatever IDs the store assigned them.
func (p Plan) Apply(persisted []Expenditure) []Expenditure {
	deleted := make(map[int64]struct{}, len(p.Delete))
	for _, id := range p.Delete {
		deleted[id] = struct{}{}
	}

	updated := make(map[int64]Expenditure, len(p.Update))
	for _, e := range p.Update {
		updated[e.ID] = e
	}

	out := make([]Expenditure, 0, len(persisted)+len(p.Create))

	for _, e := range persisted {
		if _, ok := deleted[e.ID]; ok {
			continue
		}

		if u, ok := updated[e.ID]; ok {
			e = u
		}

		out = append(out, e)
	}

	return append(out, p.Create...)
}
