package domain

// State is a position in the funnel.
type State string

const (
	StateInitial                           State = "INITIAL"
	StateFGTSAnticipation                  State = "FGTS_ANTICIPATION"
	StateFGTSOptInCheck                    State = "FGTS_BIRTHDAY_WITHDRAWAL_OPT_IN_CHECK"
	StatePayrollLoan                       State = "PAYROLL_LOAN"
	StateBirthdayWithdrawalAlreadyEnrolled State = "BIRTHDAY_WITHDRAWAL_ALREADY_ENROLLED"
	StateAuthorized                        State = "AUTHORIZED"
	StateClarifyDoubts                     State = "CLARIFY_DOUBTS"
	StateMakeAnticipation                  State = "MAKE_ANTICIPATION"
	StateConfirmBankingDetails             State = "CONFIRM_BANKING_DETAILS"
	StateCollectBankingDetails             State = "COLLECT_BANKING_DETAILS"
	StatePayrollSimulationConfirmed        State = "PAYROLL_SIMULATION_CONFIRMED"
)

// States lists every state in declaration order.
var States = []State{
	StateInitial,
	StateFGTSAnticipation,
	StateFGTSOptInCheck,
	StatePayrollLoan,
	StateBirthdayWithdrawalAlreadyEnrolled,
	StateAuthorized,
	StateClarifyDoubts,
	StateMakeAnticipation,
	StateConfirmBankingDetails,
	StateCollectBankingDetails,
	StatePayrollSimulationConfirmed,
}

// Valid reports whether s is one of the enumerated states.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}
