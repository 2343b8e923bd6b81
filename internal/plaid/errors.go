package plaid

import (
	"fmt"

	"github.com/plaid/plaid-go/v20/plaid"
)

// AggregatorError describes a failed call against the aggregator API.
type AggregatorError struct {
	Code       string
	Message    string
	Operation  string
	HTTPStatus int
}

func (e *AggregatorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s - %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// wrapAPIError converts an SDK error into an AggregatorError, extracting the
// embedded Plaid error code when one is present.
func wrapAPIError(operation string, err error) *AggregatorError {
	if plaidErr, convErr := plaid.ToPlaidError(err); convErr == nil {
		return &AggregatorError{
			Operation: operation,
			Code:      plaidErr.ErrorCode,
			Message:   plaidErr.ErrorMessage,
		}
	}
	return &AggregatorError{
		Operation: operation,
		Message:   err.Error(),
	}
}
