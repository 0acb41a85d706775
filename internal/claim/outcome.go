package claim

// Status is the terminal state a claim reached.
type Status int

const (
	// StatusDelivered means the key was delivered and the assignment committed.
	StatusDelivered Status = iota

	// StatusAlreadyClaimed means the account already holds a key.
	StatusAlreadyClaimed

	// StatusClaimPending means another claim by the same account is still
	// being processed.
	StatusClaimPending

	// StatusPoolExhausted means no key could be reserved.
	StatusPoolExhausted

	// StatusDeliveryRefused means the key could not be delivered and was
	// returned to the front of the pool.
	StatusDeliveryRefused
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusAlreadyClaimed:
		return "already_claimed"
	case StatusClaimPending:
		return "claim_pending"
	case StatusPoolExhausted:
		return "pool_exhausted"
	case StatusDeliveryRefused:
		return "delivery_refused"
	default:
		return "unknown"
	}
}

// Outcome is the result of one claim.
type Outcome struct {
	Status Status

	// Key is the reserved key for delivered and compensated outcomes.
	Key string

	// Reason is why delivery failed, for compensated outcomes.
	Reason error

	// AttemptID correlates log lines of one claim.
	AttemptID string
}

// Committed reports whether the claim ended with a ledger commit.
func (o Outcome) Committed() bool {
	return o.Status == StatusDelivered
}

// Compensated reports whether a reserved key had to be returned to the pool.
func (o Outcome) Compensated() bool {
	return o.Status == StatusDeliveryRefused
}

// Message is the text shown to the claimant.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusDelivered:
		return "✅ Your trial key has been sent to your **DMs**!\n" +
			"Check your private messages 📬"
	case StatusAlreadyClaimed:
		return "❌ You have already claimed your free trial key!\n" +
			"Each account is limited to **1 trial key**."
	case StatusClaimPending:
		return "⏳ Your claim is already being processed.\n" +
			"Please wait a moment and check your DMs."
	case StatusPoolExhausted:
		return "😔 Sorry, all trial keys have been claimed!\n" +
			"Please check back later or contact an admin."
	case StatusDeliveryRefused:
		return "❌ I couldn't send you a DM!\n" +
			"Please **enable Direct Messages** from server members:\n" +
			"> User Settings → Privacy & Safety → Allow DMs from server members ✅\n" +
			"Then click the button again."
	default:
		return "Something went wrong. Please try again later."
	}
}
