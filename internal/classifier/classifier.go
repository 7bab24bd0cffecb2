// Package classifier turns a transcript line into a NovaSignal with a keyword
// heuristic. Later rules win, so a farewell that also asks a question still
// puts the avatar to sleep.
package classifier

import (
	"strings"
	"unicode"

	"github.com/normanking/novaavatar/internal/signals"
)

// Rule fires when any of its words appears as a whole word, or any of its
// phrases appears anywhere in the lowercased text. Empty outcome fields leave
// the previous value in place.
type Rule struct {
	Name    string
	Words   []string
	Phrases []string

	Expression signals.Expression
	Gesture    signals.Gesture
	WakeState  signals.WakeState
}

var DefaultRules = []Rule{
	{
		Name:       "question",
		Words:      []string{"what", "how"},
		Phrases:    []string{"?"},
		Expression: signals.ExpressionCurious,
		Gesture:    signals.GestureListening,
	},
	{
		Name:       "delight",
		Words:      []string{"amazing", "great", "happy"},
		Expression: signals.ExpressionHappy,
		Gesture:    signals.GestureExplaining,
	},
	{
		Name:       "apology",
		Words:      []string{"sorry", "unfortunately", "apologize", "apologise"},
		Expression: signals.ExpressionSad,
		Gesture:    signals.GestureIdle,
	},
	{
		Name:       "work",
		Words:      []string{"checking", "analyzing", "analysing", "searching", "thinking"},
		Phrases:    []string{"let me see"},
		Expression: signals.ExpressionThinking,
		Gesture:    signals.GestureWorking,
	},
	{
		Name:       "greeting",
		Words:      []string{"hello", "hi", "hey", "greetings"},
		Expression: signals.ExpressionHappy,
		Gesture:    signals.GestureWave,
	},
	{
		Name:       "scan",
		Words:      []string{"scan", "scanning", "reading", "monitor", "monitoring"},
		Expression: signals.ExpressionCurious,
		Gesture:    signals.GestureScan,
	},
	{
		Name:       "farewell",
		Words:      []string{"sleep", "standby", "goodbye", "night", "goodnight"},
		Expression: signals.ExpressionNeutral,
		Gesture:    signals.GestureSleep,
		WakeState:  signals.WakeSleep,
	},
	{
		Name:       "surprise",
		Words:      []string{"wow"},
		Phrases:    []string{"oh my"},
		Expression: signals.ExpressionSurprise,
	},
}

type Classifier struct {
	rules []Rule
}

// New returns a classifier over rules, or DefaultRules when none are given.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify never fails: text that matches nothing yields a neutral,
// explaining, awake signal carrying the text as speech.
func (c *Classifier) Classify(text string) signals.NovaSignal {
	sig := signals.NovaSignal{
		Speech:           text,
		FacialExpression: signals.ExpressionNeutral,
		Gesture:          signals.GestureExplaining,
		Posture:          signals.PostureStanding,
		Action:           "none",
		WakeState:        signals.WakeAwake,
	}

	lower := strings.ToLower(text)
	words := wordSet(lower)
	for _, r := range c.rules {
		if !r.matches(lower, words) {
			continue
		}
		if r.Expression != "" {
			sig.FacialExpression = r.Expression
		}
		if r.Gesture != "" {
			sig.Gesture = r.Gesture
		}
		if r.WakeState != "" {
			sig.WakeState = r.WakeState
		}
	}
	return sig
}

// Matches lists the names of the rules text triggers, in order.
func (c *Classifier) Matches(text string) []string {
	lower := strings.ToLower(text)
	words := wordSet(lower)
	var names []string
	for _, r := range c.rules {
		if r.matches(lower, words) {
			names = append(names, r.Name)
		}
	}
	return names
}

func (r Rule) matches(lower string, words map[string]struct{}) bool {
	for _, w := range r.Words {
		if _, ok := words[w]; ok {
			return true
		}
	}
	for _, p := range r.Phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func wordSet(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, "'")] = struct{}{}
	}
	return set
}
