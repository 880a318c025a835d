package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConditionKind enumerates the supported condition types.
type ConditionKind string

const (
	CondFromContains    ConditionKind = "from_contains"
	CondToContains      ConditionKind = "to_contains"
	CondSubjectContains ConditionKind = "subject_contains"
	CondBodyContains    ConditionKind = "body_contains"
	CondHasAttachments  ConditionKind = "has_attachments"
	CondOlderThanDays   ConditionKind = "older_than_days"
	CondNewerThanDays   ConditionKind = "newer_than_days"
)

// ActionKind enumerates the supported action types.
type ActionKind string

const (
	ActionMoveToFolder    ActionKind = "move_to_folder"
	ActionMarkAsRead      ActionKind = "mark_as_read"
	ActionMarkAsImportant ActionKind = "mark_as_important"
	ActionDelete          ActionKind = "delete"
)

var conditionKinds = map[ConditionKind]struct{}{
	CondFromContains:    {},
	CondToContains:      {},
	CondSubjectContains: {},
	CondBodyContains:    {},
	CondHasAttachments:  {},
	CondOlderThanDays:   {},
	CondNewerThanDays:   {},
}

var actionKinds = map[ActionKind]struct{}{
	ActionMoveToFolder:    {},
	ActionMarkAsRead:      {},
	ActionMarkAsImportant: {},
	ActionDelete:          {},
}

// Condition is one predicate over a hydrated message.
type Condition struct {
	Kind ConditionKind `json:"kind"`
	// Value is the substring for the *_contains kinds, a day count for the
	// age kinds, and an optional boolean ("true" when empty) for
	// has_attachments.
	Value string `json:"value,omitempty"`
}

// Action is one effect applied to matching messages.
type Action struct {
	Kind ActionKind `json:"kind"`
	// Value is the target folder for move_to_folder; other kinds take none.
	Value string `json:"value,omitempty"`
}

// Rule is one stored filter rule.
type Rule struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Conditions      []Condition `json:"conditions"`
	Actions         []Action    `json:"actions"`
	Enabled         bool        `json:"enabled"`
	CreatedAt       time.Time   `json:"created_at"`
	LastApplied     time.Time   `json:"last_applied"`
	EmailsProcessed int         `json:"emails_processed"`
}

// Validation and lookup failures. Creation fails closed: when any of these
// fire, the store is untouched.
var (
	ErrDuplicateName    = errors.New("rules: rule name already exists")
	ErrInvalidCondition = errors.New("rules: invalid condition")
	ErrInvalidAction    = errors.New("rules: invalid action")
	ErrRuleNotFound     = errors.New("rules: rule not found")
)

func validateConditions(conds []Condition) error {
	if len(conds) == 0 {
		return fmt.Errorf("%w: at least one condition is required", ErrInvalidCondition)
	}
	for _, c := range conds {
		if _, ok := conditionKinds[c.Kind]; !ok {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidCondition, c.Kind)
		}
		switch c.Kind {
		case CondOlderThanDays, CondNewerThanDays:
			n, err := strconv.Atoi(strings.TrimSpace(c.Value))
			if err != nil || n <= 0 {
				return fmt.Errorf("%w: %s requires a positive day count, got %q", ErrInvalidCondition, c.Kind, c.Value)
			}
		case CondHasAttachments:
			if v := strings.TrimSpace(c.Value); v != "" {
				if _, err := strconv.ParseBool(v); err != nil {
					return fmt.Errorf("%w: %s takes a boolean, got %q", ErrInvalidCondition, c.Kind, c.Value)
				}
			}
		default:
			if strings.TrimSpace(c.Value) == "" {
				return fmt.Errorf("%w: %s requires a value", ErrInvalidCondition, c.Kind)
			}
		}
	}
	return nil
}

func validateActions(acts []Action) error {
	if len(acts) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidAction)
	}
	for _, a := range acts {
		if _, ok := actionKinds[a.Kind]; !ok {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
		}
		if a.Kind == ActionMoveToFolder && strings.TrimSpace(a.Value) == "" {
			return fmt.Errorf("%w: %s requires a target folder", ErrInvalidAction, a.Kind)
		}
	}
	return nil
}
