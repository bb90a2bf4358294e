package usage

import "fmt"

// ErrQuotaExceeded is returned when a tenant has no generation slots left
// in the current period.
var ErrQuotaExceeded = fmt.Errorf("generation quota exceeded")
