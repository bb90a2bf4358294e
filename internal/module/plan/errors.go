package plan

import "fmt"

// ErrUnknownPlan is returned when a plan id is not in the catalog.
var ErrUnknownPlan = fmt.Errorf("unknown plan")
