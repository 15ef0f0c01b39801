// Package policygate decides whether a stored policy verdict lets a price
// change be applied. The verdict itself is produced upstream.
package policygate

import (
	pricechangedomain "github.com/smallbiznis/pricesync/internal/pricechange/domain"
)

// Evaluate is true only for a present verdict with ok=true.
func Evaluate(result pricechangedomain.NullPolicyResult) bool {
	return result.Valid && result.Result.OK
}

// FailedChecks names the checks that did not pass.
func FailedChecks(result pricechangedomain.NullPolicyResult) []string {
	if !result.Valid {
		return nil
	}
	var failed []string
	for _, check := range result.Result.Checks {
		if !check.OK {
			failed = append(failed, check.Name)
		}
	}
	return failed
}
