package api

import "encoding/json"

// The verification endpoint has been observed answering in three shapes: a
// nested user object, a flat userId/email pair, and either of those wrapped
// in {"data": ...}. Which one is authoritative is undocumented, so parsing
// stays tolerant of all of them. Nested wins when both are present.
type verifyWire struct {
	Token string `json:"token"`
	User  *struct {
		ID             string `json:"id"`
		Email          string `json:"email"`
		Name           string `json:"name"`
		OnboardingDone bool   `json:"onboardingDone"`
	} `json:"user"`
	UserID string          `json:"userId"`
	Email  string          `json:"email"`
	Data   json.RawMessage `json:"data"`
}

func parseVerifyResponse(raw json.RawMessage) (*VerifyResult, error) {
	res, ok := decodeVerifyWire(raw)
	if ok {
		return res, nil
	}

	// unwrap {"data": ...} once
	var outer verifyWire
	if err := json.Unmarshal(raw, &outer); err == nil && len(outer.Data) > 0 {
		if res, ok := decodeVerifyWire(outer.Data); ok {
			return res, nil
		}
	}

	return nil, &Error{
		Status:  500,
		Message: "Unexpected verification response format",
		Body:    raw,
	}
}

func decodeVerifyWire(raw json.RawMessage) (*VerifyResult, bool) {
	var wire verifyWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, false
	}
	if wire.Token == "" {
		return nil, false
	}

	if wire.User != nil && wire.User.Email != "" {
		return &VerifyResult{
			Token: wire.Token,
			User: VerifiedUser{
				ID:             wire.User.ID,
				Email:          wire.User.Email,
				Name:           wire.User.Name,
				OnboardingDone: wire.User.OnboardingDone,
			},
		}, true
	}

	if wire.Email != "" {
		return &VerifyResult{
			Token: wire.Token,
			User:  VerifiedUser{ID: wire.UserID, Email: wire.Email},
		}, true
	}

	return nil, false
}
