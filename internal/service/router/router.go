package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/model/lex"
	"github.com/alokkulkarni/connect-relay/internal/service/ai"
	"github.com/alokkulkarni/connect-relay/internal/service/learning"
)

const (
	IntentFallback    = "FallbackIntent"
	IntentTalkToAgent = "TalkToAgent"
	SlotDepartment    = "Department"
)

// User-facing replies. Remote errors are never shown verbatim.
const (
	MessageClarify         = "I'm sorry, I didn't understand that. Could you please repeat?"
	MessageNotUnderstood   = "I didn't understand that."
	MessageTrouble         = "I'm having trouble understanding right now. Please try again."
	MessageBlocked         = "I'm sorry, but I can't help with that request."
	messageTransfer        = "Transferring you to %s..."
	messageInferredHandoff = "I understand you want to speak to %s. Transferring you now..."
)

// AnswerCache remembers generated answers to general questions.
type AnswerCache interface {
	Lookup(ctx context.Context, question string) (string, bool)
	Store(ctx context.Context, question, answer string)
}

// Learner records an utterance that was classified as a department handoff.
type Learner interface {
	Enabled() bool
	Learn(ctx context.Context, utterance, department string) (bool, error)
}

// TaskRunner runs work outside the turn that requested it.
type TaskRunner interface {
	Submit(name string, task learning.Task) string
}

// Deps groups the collaborators of a Router. Cache, Learner and Runner are optional.
type Deps struct {
	Generator ai.Generator
	Cache     AnswerCache
	Learner   Learner
	Runner    TaskRunner
}

// Router turns one Lex V2 code hook event into a dialog close response.
type Router struct {
	cfg  config.RouterConfig
	deps Deps
	log  *zap.Logger
}

func New(cfg config.RouterConfig, deps Deps, log *zap.Logger) *Router {
	return &Router{cfg: cfg, deps: deps, log: log.With(zap.String("module", "router"))}
}

// Route evaluates the turn. It never returns an error: every failure is
// replaced by a safe message for the end user.
func (r *Router) Route(ctx context.Context, event lex.Event) lex.Response {
	intent := event.SessionState.Intent.Name
	attrs := event.SessionState.SessionAttributes

	r.log.Info("routing turn",
		zap.String("intent", intent),
		zap.String("sessionId", event.SessionID),
		zap.Int("transcriptLength", len(event.InputTranscript)),
	)

	switch {
	case intent == IntentFallback && !r.generative():
		return lex.Close(intent, lex.StateFulfilled, MessageClarify, attrs)
	case intent == IntentTalkToAgent:
		return r.routeToDepartment(event)
	case intent == IntentFallback:
		return r.answer(ctx, event)
	default:
		return lex.Close(intent, lex.StateFulfilled, MessageNotUnderstood, attrs)
	}
}

func (r *Router) generative() bool {
	return r.cfg.GenerativeFallback && r.deps.Generator != nil
}

func (r *Router) routeToDepartment(event lex.Event) lex.Response {
	intent := event.SessionState.Intent.Name
	department := event.SlotText(SlotDepartment)

	if arn, ok := r.lookup(department); ok {
		r.log.Info("department resolved", zap.String("department", department))
		return lex.Close(intent, lex.StateFulfilled,
			fmt.Sprintf(messageTransfer, department),
			withQueue(event.SessionState.SessionAttributes, department, arn),
		)
	}

	r.log.Info("unknown department", zap.String("department", department))
	return lex.Close(intent, lex.StateFulfilled, r.unknownDepartmentMessage(department), event.SessionState.SessionAttributes)
}

func (r *Router) unknownDepartmentMessage(department string) string {
	names := r.departmentNames()
	if len(names) == 0 {
		return "Sorry, no departments are available right now."
	}
	if department == "" {
		return fmt.Sprintf("Which department would you like? Available departments are: %s.", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Sorry, I couldn't find a queue for %s. Available departments are: %s.", department, strings.Join(names, ", "))
}

func (r *Router) answer(ctx context.Context, event lex.Event) lex.Response {
	intent := event.SessionState.Intent.Name
	attrs := event.SessionState.SessionAttributes
	utterance := event.InputTranscript

	if r.deps.Cache != nil {
		if cached, ok := r.deps.Cache.Lookup(ctx, utterance); ok {
			return lex.Close(intent, lex.StateFulfilled, cached, attrs)
		}
	}

	reply, err := r.deps.Generator.Generate(ctx, r.buildPrompt(utterance))
	if err != nil {
		if errors.Is(err, ai.ErrModerationBlocked) {
			r.log.Warn("turn blocked by guardrail", zap.String("intent", intent))
			return lex.Close(intent, lex.StateFulfilled, MessageBlocked, attrs)
		}
		r.log.Error("generative fallback failed", zap.String("intent", intent), zap.Error(err))
		return lex.Close(intent, lex.StateFulfilled, MessageTrouble, attrs)
	}
	if reply == "" {
		return lex.Close(intent, lex.StateFulfilled, MessageTrouble, attrs)
	}

	if arn, ok := r.lookup(reply); ok {
		r.log.Info("model classified handoff", zap.String("department", reply))
		r.learn(utterance, reply)
		return lex.Close(IntentTalkToAgent, lex.StateFulfilled,
			fmt.Sprintf(messageInferredHandoff, reply),
			withQueue(attrs, reply, arn),
		)
	}

	if r.deps.Cache != nil {
		r.deps.Cache.Store(ctx, utterance, reply)
	}
	return lex.Close(intent, lex.StateFulfilled, reply, attrs)
}

// learn submits the self-learning write-back. Its outcome never reaches the turn.
func (r *Router) learn(utterance, department string) {
	if r.deps.Runner == nil || r.deps.Learner == nil || !r.deps.Learner.Enabled() {
		return
	}

	learner := r.deps.Learner
	id := r.deps.Runner.Submit("self-learning", func(ctx context.Context) error {
		_, err := learner.Learn(ctx, utterance, department)
		return err
	})
	r.log.Debug("self-learning submitted", zap.String("taskId", id), zap.String("department", department))
}

func (r *Router) buildPrompt(utterance string) string {
	var b strings.Builder
	b.WriteString("You are an intelligent intent classifier for a customer service bot.\n")
	fmt.Fprintf(&b, "The available departments are: %s.\n", strings.Join(r.departmentNames(), ", "))
	fmt.Fprintf(&b, "The user's locale is: %s. Please respond appropriately for this locale.\n\n", r.cfg.Locale)
	fmt.Fprintf(&b, "User message: %q\n\n", utterance)
	b.WriteString("Instructions:\n")
	b.WriteString("1. If the user wants to speak to a specific department, reply with ONLY the department name (e.g., \"Sales\").\n")
	b.WriteString("2. If the user is asking a general question, reply with the answer to the question.\n")
	return b.String()
}

func (r *Router) lookup(department string) (string, bool) {
	if department == "" || r.cfg.Routes == nil {
		return "", false
	}
	return r.cfg.Routes.Get(department)
}

// departmentNames lists the configured departments in configuration order.
func (r *Router) departmentNames() []string {
	if r.cfg.Routes == nil {
		return nil
	}
	names := make([]string, 0, r.cfg.Routes.Len())
	for pair := r.cfg.Routes.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

func withQueue(attrs map[string]string, department, arn string) map[string]string {
	merged := make(map[string]string, len(attrs)+2)
	for k, v := range attrs {
		merged[k] = v
	}
	merged[lex.AttrTargetQueue] = department
	merged[lex.AttrTargetQueueArn] = arn
	return merged
}
