// Package dsl 提供基于 CEL (Common Expression Language) 的布尔规则求值，
// 供推荐编排层按配置过滤候选结果使用。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/matchkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("ctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Rule 是一条编译后的候选过滤规则，可跨请求复用。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：item.match_score > 0.1 / item.similarity >= 0.5
//   - 文本：item.title.contains("Go")
//   - 集合："vector" in item.algorithms
//   - 逻辑：item.match_score > 0.2 && item.skill_score > 0
//
// 上下文变量 ctx 携带请求级字段：ctx.kind / ctx.subject_id / ctx.limit。
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；表达式为空时返回恒真的规则。
func Compile(expr string) (*Rule, error) {
	r := &Rule{expr: expr}
	if expr == "" {
		return r, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: env error: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program error: %w", err)
	}
	r.prg = prg
	return r, nil
}

// Expr 返回规则源表达式。
func (r *Rule) Expr() string { return r.expr }

// Evaluate 对单个候选求值。空规则恒为 true。
func (r *Rule) Evaluate(item *core.Item, ctx map[string]any) (bool, error) {
	if r.prg == nil {
		return true, nil
	}
	out, _, err := r.prg.Eval(map[string]any{
		"item": buildItemInput(item),
		"ctx":  ctx,
	})
	if err != nil {
		return false, fmt.Errorf("dsl: eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func buildItemInput(it *core.Item) map[string]any {
	algorithms := make([]any, 0, len(it.Algorithms))
	for _, a := range it.Algorithms {
		algorithms = append(algorithms, a)
	}
	skills := make([]any, 0, len(it.MatchedSkills))
	for _, s := range it.MatchedSkills {
		skills = append(skills, s)
	}
	return map[string]any{
		"id":             it.ID,
		"kind":           string(it.Kind),
		"title":          it.Title,
		"company":        it.Company,
		"match_score":    it.MatchScore,
		"similarity":     it.Similarity,
		"skill_score":    it.SkillScore,
		"matched_skills": skills,
		"algorithms":     algorithms,
	}
}
