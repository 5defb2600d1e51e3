package resilience

// ActionID identifies a follow-up the client can offer as a button.
type ActionID string

const (
	ActionRetry          ActionID = "retry"
	ActionHelp           ActionID = "help"
	ActionContactSupport ActionID = "contact_support"
	ActionReauthenticate ActionID = "reauthenticate"
)

// OriginalAction describes what the user was trying to do.
type OriginalAction struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Action is a suggested follow-up.
type Action struct {
	Label   string          `json:"label"`
	ID      ActionID        `json:"actionId"`
	Payload *OriginalAction `json:"payload,omitempty"`
}

func retryAction(original *OriginalAction) Action {
	return Action{Label: "Try again", ID: ActionRetry, Payload: original}
}

func helpAction() *Action {
	return &Action{Label: "Get help", ID: ActionHelp}
}

func contactSupportAction() *Action {
	return &Action{Label: "Contact support", ID: ActionContactSupport}
}

func reauthenticateAction() *Action {
	return &Action{Label: "Sign in again", ID: ActionReauthenticate}
}

// SuggestActions returns the ordered follow-ups for a classified error.
// The retry action, when present, is first and carries original verbatim.
func SuggestActions(ce ClassifiedError, original *OriginalAction) []Action {
	if ce.Category == CategoryBusiness && ce.Code == CodeAuthExpired {
		return []Action{*reauthenticateAction()}
	}

	var actions []Action
	if ce.Retryable && ce.Category != CategoryValidation {
		actions = append(actions, retryAction(original))
	}

	switch ce.Category {
	case CategoryValidation:
		actions = append(actions, *helpAction())
	case CategoryNetwork:
		if ce.Transport || (ce.Status >= 500 && ce.Status <= 599) {
			actions = append(actions, *contactSupportAction())
		}
	case CategoryBusiness:
		actions = append(actions, *helpAction())
	}

	if len(actions) == 0 {
		actions = append(actions, *helpAction())
	}
	return actions
}
