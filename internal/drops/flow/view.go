package flow

import (
	"github.com/Its-donkey/quinfall-site/internal/drops"
	"github.com/Its-donkey/quinfall-site/internal/drops/claim"
	"github.com/Its-donkey/quinfall-site/internal/drops/linkstate"
)

// Phase is the claim state machine position.
type Phase int

const (
	Locked Phase = iota
	PartiallyLinked
	Ready
	Cooling
	Claimed
)

func (p Phase) String() string {
	switch p {
	case Locked:
		return "locked"
	case PartiallyLinked:
		return "partially_linked"
	case Ready:
		return "ready"
	case Cooling:
		return "cooling"
	case Claimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// PhaseOf derives the phase from the link and claim state.
func PhaseOf(link linkstate.State, c claim.State) Phase {
	switch {
	case !link.SteamLinked:
		return Locked
	case !link.TwitchLinked:
		return PartiallyLinked
	case c.RewardsCollected:
		return Claimed
	case c.CooldownSecondsRemaining > 0:
		return Cooling
	default:
		return Ready
	}
}

// StepStatus is how a numbered step is drawn.
type StepStatus string

const (
	StepLocked    StepStatus = "locked"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
)

// Step is one of the three numbered steps.
type Step struct {
	Number int
	Title  string
	Status StepStatus
}

// View is everything the renderer needs.
type View struct {
	Phase          Phase
	Steps          [3]Step
	SteamLinked    bool
	SteamUsername  string
	TwitchLinked   bool
	TwitchUsername string

	CanConnectTwitch bool
	CanClaim         bool
	Claiming         bool
	Cooldown         int
	Message          drops.Message
}

// Snapshot builds a View.
func Snapshot(link linkstate.State, c claim.State) View {
	phase := PhaseOf(link, c)
	v := View{
		Phase:            phase,
		SteamLinked:      link.SteamLinked,
		SteamUsername:    link.SteamUsername,
		TwitchLinked:     link.TwitchLinked,
		TwitchUsername:   link.TwitchUsername,
		CanConnectTwitch: link.SteamLinked && !link.TwitchLinked,
		CanClaim:         phase == Ready && !c.InFlight,
		Claiming:         c.InFlight,
		Cooldown:         c.CooldownSecondsRemaining,
		Message:          c.LastMessage,
	}

	v.Steps[0] = Step{Number: 1, Title: "Link your Steam account", Status: StepActive}
	v.Steps[1] = Step{Number: 2, Title: "Link your Twitch account", Status: StepLocked}
	v.Steps[2] = Step{Number: 3, Title: "Claim your rewards", Status: StepLocked}
	if link.SteamLinked {
		v.Steps[0].Status = StepCompleted
		v.Steps[1].Status = StepActive
	}
	if link.SteamLinked && link.TwitchLinked {
		v.Steps[1].Status = StepCompleted
		v.Steps[2].Status = StepActive
	}
	if phase == Claimed {
		v.Steps[2].Status = StepCompleted
	}
	return v
}
