package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Manager provides rule CRUD over a Store. Validation happens before any
// store write, so a rejected mutation leaves the persisted list unchanged.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager returns a manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// List returns all rules in creation order.
func (m *Manager) List() ([]Rule, error) {
	return m.store.Load()
}

// Get returns the rule with the given id.
func (m *Manager) Get(id string) (Rule, error) {
	rules, err := m.store.Load()
	if err != nil {
		return Rule{}, err
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// Create validates and persists a new rule. Names are unique
// case-insensitively; ids are monotonic numeric strings.
func (m *Manager) Create(name string, conds []Condition, acts []Action, enabled bool) (Rule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Rule{}, errors.New("rules: rule name is required")
	}
	if err := validateConditions(conds); err != nil {
		return Rule{}, err
	}
	if err := validateActions(acts); err != nil {
		return Rule{}, err
	}
	rules, err := m.store.Load()
	if err != nil {
		return Rule{}, err
	}
	for _, existing := range rules {
		if strings.EqualFold(existing.Name, name) {
			return Rule{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}
	rule := Rule{
		ID:         nextID(rules),
		Name:       name,
		Conditions: append([]Condition(nil), conds...),
		Actions:    append([]Action(nil), acts...),
		Enabled:    enabled,
		CreatedAt:  m.now().UTC(),
	}
	rules = append(rules, rule)
	if err := m.store.Save(rules); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// Update carries the optional fields of an update; nil fields keep their
// current value.
type Update struct {
	Name       *string
	Conditions []Condition
	Actions    []Action
	Enabled    *bool
}

// Update applies upd to the identified rule. Provided fields are validated
// before anything is written.
func (m *Manager) Update(id string, upd Update) (Rule, error) {
	if upd.Conditions != nil {
		if err := validateConditions(upd.Conditions); err != nil {
			return Rule{}, err
		}
	}
	if upd.Actions != nil {
		if err := validateActions(upd.Actions); err != nil {
			return Rule{}, err
		}
	}
	rules, err := m.store.Load()
	if err != nil {
		return Rule{}, err
	}
	index := -1
	for i, rule := range rules {
		if rule.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Rule{}, errors.New("rules: rule name is required")
		}
		for i, existing := range rules {
			if i != index && strings.EqualFold(existing.Name, name) {
				return Rule{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
			}
		}
		rules[index].Name = name
	}
	if upd.Conditions != nil {
		rules[index].Conditions = append([]Condition(nil), upd.Conditions...)
	}
	if upd.Actions != nil {
		rules[index].Actions = append([]Action(nil), upd.Actions...)
	}
	if upd.Enabled != nil {
		rules[index].Enabled = *upd.Enabled
	}
	if err := m.store.Save(rules); err != nil {
		return Rule{}, err
	}
	return rules[index], nil
}

// Delete removes the identified rule.
func (m *Manager) Delete(id string) error {
	rules, err := m.store.Load()
	if err != nil {
		return err
	}
	kept := rules[:0]
	for _, rule := range rules {
		if rule.ID != id {
			kept = append(kept, rule)
		}
	}
	if len(kept) == len(rules) {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return m.store.Save(kept)
}

// nextID continues the numeric id sequence across load/save cycles.
func nextID(rules []Rule) string {
	max := 0
	for _, rule := range rules {
		if n, err := strconv.Atoi(rule.ID); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
