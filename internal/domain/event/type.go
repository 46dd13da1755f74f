package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseTransitioned Type = "expense.transitioned"
	TypeCommentAdded        Type = "comment.added"
	TypeVoucherCreated      Type = "voucher.created"
	TypeMemberJoined        Type = "member.joined"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseTransitioned,
		TypeCommentAdded,
		TypeVoucherCreated,
		TypeMemberJoined:
		return true
	default:
		return false
	}
}

// Payload keys
const (
	KeyAction         = "action"
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyActorRole      = "actor_role"
	KeyCustomAmount   = "custom_amount"
	KeyApprovedAmount = "approved_amount"
	KeyReason         = "reason"
	KeyCommentID      = "comment_id"
	KeyVoucherID      = "voucher_id"
	KeyUserID         = "user_id"
	KeyRole           = "role"
	KeyVia            = "via"
)
