package services

// Business-rule outcomes travel as discriminated status fields in
// otherwise successful responses; only transport failures and malformed
// requests are errors.
const (
	ResultCustomerDetailsRequired = "customer_details_required"
	ResultInvalidState            = "invalid_state"
	ResultIdentityMismatch        = "identity_mismatch"
	ResultOverrideRequired        = "override_required"
	ResultDuplicatePhone          = "duplicate_phone"
	ResultUserNotFound            = "user_not_found"
	ResultAlreadyOut              = "already_out"
	ResultNotOut                  = "not_out"
)

// OpResult is the discriminated result of a state-changing operation.
// Status either names the state the record entered or one of the
// Result* outcomes above.
type OpResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func resultOf(status, message string) OpResult {
	return OpResult{Status: status, Message: message}
}

// Failed reports whether the status is a business-rule refusal rather
// than an entered state.
func (r OpResult) Failed() bool {
	switch r.Status {
	case ResultCustomerDetailsRequired, ResultInvalidState, ResultIdentityMismatch,
		ResultOverrideRequired, ResultDuplicatePhone, ResultUserNotFound,
		ResultAlreadyOut, ResultNotOut:
		return true
	}
	return false
}
