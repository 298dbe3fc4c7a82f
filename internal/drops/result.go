// Package drops holds the types shared by the Twitch Drops linking and claim flow.
package drops

// Kind classifies the outcome of a link callback or a reward claim.
type Kind int

const (
	KindSuccess Kind = iota
	KindConflict
	KindRejected
	KindNetworkError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindConflict:
		return "conflict"
	case KindRejected:
		return "rejected"
	case KindNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome produced at the backend boundary. Detail carries the
// human-readable text that will be shown to the player.
type Result struct {
	Kind   Kind
	Detail string
}

// Message converts the result into the message shown under the drops panel.
func (r Result) Message() Message {
	tone := ToneError
	if r.Kind == KindSuccess {
		tone = ToneSuccess
	}
	return Message{Text: r.Detail, Tone: tone}
}

// Tone selects how a message is styled.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// Message is the single user-visible result line.
type Message struct {
	Text string
	Tone Tone
}

// Empty reports whether there is nothing to show.
func (m Message) Empty() bool {
	return m.Text == ""
}

// Default player-facing texts used when the backend does not supply one.
const (
	DefaultClaimSuccess    = "Your Twitch reward has been found and will be delivered to your in-game account within 5 minutes!"
	DefaultClaimRejected   = "No rewards available."
	DefaultServerError     = "Server error. Try again later."
	TwitchAlreadyLinkedMsg = "This Twitch account is already linked to another Steam account!"
	SteamAlreadyLinkedMsg  = "This Steam account is already linked to another Twitch account!"
)
