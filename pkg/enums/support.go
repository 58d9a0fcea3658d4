package enums

import "fmt"

// SupportIssueType categorizes a support ticket.
type SupportIssueType string

const (
	SupportIssueTypeRechargeFailure SupportIssueType = "recharge_failure"
	SupportIssueTypePaymentIssue    SupportIssueType = "payment_issue"
	SupportIssueTypePlanQuery       SupportIssueType = "plan_query"
	SupportIssueTypeAccountIssue    SupportIssueType = "account_issue"
	SupportIssueTypeOther           SupportIssueType = "other"
)

var validSupportIssueTypes = []SupportIssueType{
	SupportIssueTypeRechargeFailure,
	SupportIssueTypePaymentIssue,
	SupportIssueTypePlanQuery,
	SupportIssueTypeAccountIssue,
	SupportIssueTypeOther,
}

// IsValid reports whether the value is a known SupportIssueType.
func (s SupportIssueType) IsValid() bool {
	for _, candidate := range validSupportIssueTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSupportIssueType converts raw input into a SupportIssueType.
func ParseSupportIssueType(value string) (SupportIssueType, error) {
	for _, candidate := range validSupportIssueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid support issue type %q", value)
}

// SupportStatus tracks the lifecycle of a support ticket.
type SupportStatus string

const (
	SupportStatusOpen       SupportStatus = "open"
	SupportStatusInProgress SupportStatus = "in_progress"
	SupportStatusResolved   SupportStatus = "resolved"
	SupportStatusClosed     SupportStatus = "closed"
)

var validSupportStatuses = []SupportStatus{
	SupportStatusOpen,
	SupportStatusInProgress,
	SupportStatusResolved,
	SupportStatusClosed,
}

// String implements fmt.Stringer.
func (s SupportStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SupportStatus.
func (s SupportStatus) IsValid() bool {
	for _, candidate := range validSupportStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed from the status.
func (s SupportStatus) Terminal() bool {
	return s == SupportStatusClosed
}

// ParseSupportStatus converts raw input into a SupportStatus.
func ParseSupportStatus(value string) (SupportStatus, error) {
	for _, candidate := range validSupportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid support status %q", value)
}
