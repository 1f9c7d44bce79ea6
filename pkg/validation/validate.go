package validation

import (
	"fmt"
	"strings"

	"livechat/pkg/models"
)

// Rules carries the boundary validation limits. Defaults apply when a field
// is zero; SetRules installs overrides from config at startup.
type Rules struct {
	MaxAuthorLen   int
	MaxBodyLen     int
	MaxKindLen     int
	MinPasswordLen int
}

var rules = Rules{}

// SetRules installs the active rule set.
func SetRules(r Rules) { rules = r }

func maxAuthor() int {
	if rules.MaxAuthorLen > 0 {
		return rules.MaxAuthorLen
	}
	return 128
}

func maxBody() int {
	if rules.MaxBodyLen > 0 {
		return rules.MaxBodyLen
	}
	return 4096
}

func maxKind() int {
	if rules.MaxKindLen > 0 {
		return rules.MaxKindLen
	}
	return 64
}

func minPassword() int {
	if rules.MinPasswordLen > 0 {
		return rules.MinPasswordLen
	}
	return 8
}

// ValidateUsername checks a username field at the boundary.
func ValidateUsername(u string) error {
	if strings.TrimSpace(u) == "" {
		return fmt.Errorf("username required")
	}
	if len(u) > maxAuthor() {
		return fmt.Errorf("username too long (max %d)", maxAuthor())
	}
	return nil
}

// ValidateMessageInput checks an inbound post-message request.
func ValidateMessageInput(author, body string) error {
	if err := ValidateUsername(author); err != nil {
		return fmt.Errorf("author: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("body required")
	}
	if len(body) > maxBody() {
		return fmt.Errorf("body too long (max %d)", maxBody())
	}
	return nil
}

// ValidateReactionInput checks an inbound reaction mutation. The kind is an
// opaque label; only presence and length are enforced here.
func ValidateReactionInput(username, kind string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if kind == "" {
		return fmt.Errorf("reaction required")
	}
	if len(kind) > maxKind() {
		return fmt.Errorf("reaction too long (max %d)", maxKind())
	}
	return nil
}

// ValidateStatus checks a presence status value.
func ValidateStatus(s string) (models.Status, error) {
	switch models.Status(s) {
	case models.StatusOnline:
		return models.StatusOnline, nil
	case models.StatusOffline:
		return models.StatusOffline, nil
	}
	return "", fmt.Errorf("status must be online or offline")
}

// ValidateRegistration checks an inbound register request.
func ValidateRegistration(username, password, email string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if len(password) < minPassword() {
		return fmt.Errorf("password must be at least %d characters", minPassword())
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateChannel checks a notification channel.
func ValidateChannel(c string) error {
	if c != "email" && c != "sms" {
		return fmt.Errorf("channel must be email or sms")
	}
	return nil
}
