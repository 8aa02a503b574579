package conversation

// State is the step of the dialogue a user is in.
type State string

const (
	StateMenu                  State = "menu"
	StateExpenseAskAmount      State = "adding_expense_ask_amount"
	StateExpenseAskCategory    State = "adding_expense_ask_category"
	StateExpenseAskDesc        State = "adding_expense_ask_description"
	StateIncomeAskAmount       State = "adding_income_ask_amount"
	StateIncomeAskDesc         State = "adding_income_ask_description"
	StateConfirmQuickExpense   State = "confirm_quick_expense"
	StateConfirmQuickIncome    State = "confirm_quick_income"
	StateGoalAskName           State = "adding_goal_ask_name"
	StateGoalAskValue          State = "adding_goal_ask_value"
	StateGoalAskMonths         State = "adding_goal_ask_months"
	StateGoalAskValueFromVoice State = "adding_goal_ask_value_from_voice"
	StateConfirmVoiceGoal      State = "confirm_voice_goal"
	StateAwaitingNextEntry     State = "awaiting_next_entry"
)

// Open reports whether free text is tried as an intent before anything
// else. Every other state is in the middle of a form and owns the reply.
func (s State) Open() bool {
	return s == StateMenu || s == StateAwaitingNextEntry
}
