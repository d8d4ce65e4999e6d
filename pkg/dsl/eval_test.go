package dsl

import (
	"testing"

	"github.com/rushteam/matchkit/core"
)

func TestRuleEvaluate(t *testing.T) {
	item := core.NewItem(core.KindJob, 7)
	item.Title = "Go Backend Engineer"
	item.MatchScore = 0.42
	item.AddAlgorithm(core.AlgorithmVector)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "empty rule passes", expr: "", want: true},
		{name: "score gate pass", expr: "item.match_score > 0.1", want: true},
		{name: "score gate fail", expr: "item.match_score > 0.9", want: false},
		{name: "algorithm membership", expr: "\"vector\" in item.algorithms", want: true},
		{name: "title match", expr: "item.title.contains(\"Go\")", want: true},
		{name: "combined", expr: "item.match_score > 0.1 && item.kind == \"job\"", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tt.expr, err)
			}
			got, err := rule.Evaluate(item, map[string]any{"kind": "job"})
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestRuleCompileError(t *testing.T) {
	if _, err := Compile("item.match_score >"); err == nil {
		t.Error("Compile should reject malformed expression")
	}
}

func TestRuleNonBoolean(t *testing.T) {
	rule, err := Compile("item.match_score")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	item := core.NewItem(core.KindJob, 1)
	if _, err := rule.Evaluate(item, nil); err == nil {
		t.Error("Evaluate should reject non-boolean result")
	}
}
