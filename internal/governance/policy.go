package governance

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes a user action to be screened before it reaches the model.
type Request struct {
	Action string
	Input  string
	ChatID string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates user actions against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies whole actions, inputs matching a pattern, and
// inputs longer than MaxInputLen runes.
type DefaultPolicyEngine struct {
	DeniedActions map[string]bool
	DeniedRegex   []*regexp.Regexp
	MaxInputLen   int
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedActions: make(map[string]bool),
		DeniedRegex:   make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyAction(name string) {
	e.DeniedActions[name] = true
}

func (e *DefaultPolicyEngine) DenyInput(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedActions[req.Action] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Action '%s' is disabled on this assistant", req.Action),
		}, nil
	}

	if e.MaxInputLen > 0 && utf8.RuneCountInString(req.Input) > e.MaxInputLen {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Input is longer than %d characters", e.MaxInputLen),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Input) {
			return Result{
				Effect: EffectDeny,
				Reason: "Input matches a restricted pattern",
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
