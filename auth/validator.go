package auth

import (
	"fmt"
	"unicode/utf8"

	"skillxchange/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type SendMessageRequest struct {
	ReceiverID    string `validate:"required,max=128"`
	Text          string `validate:"required"`
	CorrelationID string `validate:"omitempty,max=64"`
}

type MarkAsReadRequest struct {
	ConversationID string `validate:"required,max=128"`
}

// Validator checks client payloads before they reach the pipeline.
type Validator struct {
	maxTextLength int
}

func NewValidator(maxTextLength int) Validator {
	return Validator{maxTextLength: maxTextLength}
}

func (v Validator) ValidateSend(senderID string, req SendMessageRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if req.ReceiverID == senderID {
		return fmt.Errorf("%w: cannot send a message to yourself", errors.ErrInvalidPayload)
	}
	if v.maxTextLength > 0 && utf8.RuneCountInString(req.Text) > v.maxTextLength {
		return fmt.Errorf("%w: text exceeds %d characters", errors.ErrInvalidPayload, v.maxTextLength)
	}
	return nil
}

func (v Validator) ValidateMarkAsRead(req MarkAsReadRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
