package locate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"asset-tracker/internal/logger"
)

// Stage：定位流程阶段
type Stage int

const (
	StagePermission Stage = iota
	StageService
	StageFix
)

func (s Stage) String() string {
	switch s {
	case StagePermission:
		return "permission"
	case StageService:
		return "service"
	}
	return "fix"
}

// Choice：恢复对话框的选项
type Choice int

const (
	ChoiceRetry Choice = iota
	ChoiceCancel
	ChoiceUseDefault
)

func (c Choice) String() string {
	switch c {
	case ChoiceCancel:
		return "cancel"
	case ChoiceUseDefault:
		return "use_default"
	}
	return "retry"
}

// ParseChoice：配置文本转选项，无法识别时返回 retry
func ParseChoice(s string) Choice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cancel":
		return ChoiceCancel
	case "use_default", "default", "fallback":
		return ChoiceUseDefault
	}
	return ChoiceRetry
}

// Prompt：一次恢复请求；Options 为本阶段允许的选项
type Prompt struct {
	Stage   Stage
	Err     error
	Options []Choice
}

func (p Prompt) allows(c Choice) bool {
	for _, o := range p.Options {
		if o == c {
			return true
		}
	}
	return false
}

// Prompter：向用户呈现恢复选择
type Prompter interface {
	Recover(ctx context.Context, p Prompt) (Choice, error)
}

// 文档注释：策略型应答器
// 背景：无人值守时按阶段返回预设选项；重试有次数上限，超过后返回 ErrRetriesExhausted，避免定位服务关闭时无限循环。
// 约束：预设选项不在本阶段允许范围内时按 Retry 处理；每次重试前等待 Delay。
type PolicyPrompter struct {
	Answers    map[Stage]Choice
	MaxRetries int
	Delay      time.Duration

	mu      sync.Mutex
	retries int
	log     *slog.Logger
}

func NewPolicyPrompter(answers map[Stage]Choice, maxRetries int, delay time.Duration) *PolicyPrompter {
	return &PolicyPrompter{Answers: answers, MaxRetries: maxRetries, Delay: delay, log: logger.For("locate")}
}

func (p *PolicyPrompter) Recover(ctx context.Context, pr Prompt) (Choice, error) {
	c, ok := p.Answers[pr.Stage]
	if !ok || !pr.allows(c) {
		c = ChoiceRetry
	}
	if c != ChoiceRetry {
		return c, nil
	}
	p.mu.Lock()
	p.retries++
	n := p.retries
	p.mu.Unlock()
	if p.MaxRetries > 0 && n > p.MaxRetries {
		return ChoiceRetry, ErrRetriesExhausted
	}
	if p.log != nil {
		p.log.Info("locate_retry", "stage", pr.Stage.String(), "attempt", n, "err", pr.Err)
	}
	if p.Delay > 0 {
		t := time.NewTimer(p.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ChoiceRetry, ctx.Err()
		case <-t.C:
		}
	}
	return ChoiceRetry, nil
}
