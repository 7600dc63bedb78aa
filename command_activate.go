package accounts

import "context"

// ActivateMessage carries an activation code
type ActivateMessage struct {
	Code string `json:"code"`
}

func (e ActivateMessage) Type() string { return "account.activate" }

// ActivateResponse reports the activation outcome
type ActivateResponse struct {
	Outcome ActivationOutcome `json:"outcome"`
	Account *Account          `json:"account,omitempty"`
	Message string            `json:"message"`
}

// Activate consumes an activation code
func (s *Service) Activate(ctx context.Context, msg ActivateMessage) (*ActivateResponse, error) {
	ctx, cancel, err := s.begin(ctx, "activation")
	if err != nil {
		return nil, err
	}
	defer cancel()

	outcome, account, err := s.activation.Validate(ctx, msg.Code)
	if err != nil {
		return nil, err
	}

	res := &ActivateResponse{Outcome: outcome, Account: account}
	switch outcome {
	case ActivationActivated:
		res.Message = MessageActivated
	case ActivationExpired:
		res.Message = MessageActivationExpired
	default:
		res.Message = MessageActivationNotFound
	}

	s.debugOutcome(msg.Type(), res)
	return res, nil
}
