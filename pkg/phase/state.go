package phase

// Phase names a step of a round.
type Phase string

const (
	PhaseSuggest     Phase = "suggest"
	PhaseAwaitVoting Phase = "await-voting"
	PhaseVote        Phase = "vote"
	PhaseObserve     Phase = "observe"
)

// VoteMethod is the voting control a round used.
type VoteMethod string

const (
	VoteNone   VoteMethod = ""
	VoteButton VoteMethod = "button"
	VoteInput  VoteMethod = "input"
)

// RoundState records what happened during one round.
type RoundState struct {
	Round int

	Suggested bool
	Answer    string

	VotingSeen bool
	Vote       VoteMethod
	VoteCast   bool

	// Abandoned is set when a poll timeout skipped the rest of the round
	Abandoned bool

	// Completed is set when the round reached the observe step
	Completed  bool
	Progressed bool
}
