package generation

import "fmt"

var (
	// ErrInvalidToolType is returned for tool types outside the known set.
	ErrInvalidToolType = fmt.Errorf("invalid tool type")
	// ErrProviderRateLimited means the upstream provider throttled the
	// request. Transient; the reservation is rolled back.
	ErrProviderRateLimited = fmt.Errorf("provider rate limited")
	// ErrProviderPaymentRequired means the upstream provider rejected the
	// request for billing reasons. The reservation is rolled back.
	ErrProviderPaymentRequired = fmt.Errorf("provider payment required")
	// ErrProviderUnknown covers all other provider failures.
	ErrProviderUnknown = fmt.Errorf("provider error")
)
