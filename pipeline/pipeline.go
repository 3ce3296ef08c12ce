package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/limits"
	"github.com/itsneelabh/agentctl/screenshot"
)

// HighlightRequester is the out-of-scope helper collaborator that outlines a
// candidate element on the page, per spec.md §4.3's "After commit".
type HighlightRequester interface {
	RequestHighlight(ctx context.Context, elementIndex int, promptingIndex int) error
}

// highlightRenderDelay approximates "roughly one animation frame plus a
// fixed render delay" (spec.md §4.3); the spec explicitly acknowledges this
// timing is best-effort.
const highlightRenderDelay = 120 * time.Millisecond

// pageLoadWaitDelay is the pause before a fresh page-state request when the
// model reports the page is still loading (spec.md §4.3 step 5).
const pageLoadWaitDelay = 5 * time.Second

// Pipeline runs the Decision Pipeline for one page-state round.
type Pipeline struct {
	clientMu    sync.RWMutex
	client      aiclient.Client
	screenshots *screenshot.Coordinator
	guard       *limits.Guard
	highlighter HighlightRequester
	logger      core.Logger
	telemetry   core.Telemetry

	sleep func(time.Duration)
}

// SetClient swaps the AI client in use, per spec.md §4.2: "An AI-provider
// change triggers reconstruction of the engine with the stored API key."
// Safe to call while a round is in flight; the swap takes effect on the
// next model call.
func (p *Pipeline) SetClient(client aiclient.Client) {
	p.clientMu.Lock()
	defer p.clientMu.Unlock()
	p.client = client
}

func (p *Pipeline) currentClient() aiclient.Client {
	p.clientMu.RLock()
	defer p.clientMu.RUnlock()
	return p.client
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l core.Logger) Option          { return func(p *Pipeline) { p.logger = l } }
func WithTelemetry(t core.Telemetry) Option    { return func(p *Pipeline) { p.telemetry = t } }
func WithHighlighter(h HighlightRequester) Option {
	return func(p *Pipeline) { p.highlighter = h }
}

// New creates a Pipeline. client and screenshots are required collaborators;
// guard is the shared Counter & Limit Guard instance.
func New(client aiclient.Client, screenshots *screenshot.Coordinator, guard *limits.Guard, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:      client,
		screenshots: screenshots,
		guard:       guard,
		logger:      &core.NoOpLogger{},
		telemetry:   &core.NoOpTelemetry{},
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RoundResultKind enumerates how a page-state round ended.
type RoundResultKind int

const (
	RoundCommitted RoundResultKind = iota
	RoundTerminated
	RoundWaitAndRefetch
	RoundLimitBreached
)

// RoundResult is what RunPageStateRound hands back to the controller. On a
// commit, PlanningOutput/GroundingOutput/Screenshot carry forward the
// winning round's model outputs so the Auto-Monitor Judge can be invoked
// with them, per spec.md §4.4 ("with planning output, grounding output, and
// preferably the highlighted screenshot").
type RoundResult struct {
	Kind            RoundResultKind
	Breach          *limits.Breach
	Pending         *core.PendingAction
	PlanningOutput  string
	GroundingOutput string
	Screenshot      []byte
}

// RunPageStateRound executes spec.md §4.3's reprompting loop against one
// page-state message, mutating task's history/counters/pending action as it
// goes. Caller must hold task's lock for the duration (spec.md §5: "every
// state transition happens under the mutex").
func (p *Pipeline) RunPageStateRound(ctx context.Context, task *core.Task, state core.PageState, priorDescriptions []string) (result RoundResult, err error) {
	ctx, roundSpan := p.telemetry.StartSpan(ctx, "pipeline.RunPageStateRound")
	defer func() {
		if err != nil {
			roundSpan.RecordError(err)
		}
		roundSpan.SetAttribute("outcome", result.Kind)
		roundSpan.End()
	}()

	p.screenshots.ResetRound()
	candidates := FilterCandidates(state.Elements)
	choices, err := BuildChoices(candidates)
	if err != nil {
		return RoundResult{}, fmt.Errorf("building choices: %w", err)
	}

	for attempt := 1; ; attempt++ {
		if task.Aborted() {
			return RoundResult{}, core.ErrNoTaskActive
		}

		req := aiclient.Request{
			Specification:           task.Specification,
			PriorActionDescriptions: priorDescriptions,
			Choices:                 choices,
			ViewportHint:            viewportHint(state.Viewport),
			Attempt:                 attempt,
		}
		if task.WasPrevActionRejectedByMonitor {
			req.RejectionNotice = rejectionNotice(task.RejectionFeedback)
		}

		pngB64, err := p.screenshots.CaptureInitial(ctx, task.ID, task.Counters.Ops)
		if err != nil {
			p.logger.WarnWithContext(ctx, "initial screenshot capture failed", map[string]interface{}{"error": err.Error()})
		} else if decoded, decErr := base64.StdEncoding.DecodeString(pngB64); decErr == nil {
			req.Screenshot = decoded
		}

		planCtx, planSpan := p.telemetry.StartSpan(ctx, "pipeline.Plan")
		plan, err := p.currentClient().Plan(planCtx, req)
		if err != nil {
			planSpan.RecordError(err)
			planSpan.End()
			return RoundResult{}, core.NewFrameworkError("Pipeline.Plan", "model_call", err)
		}
		planSpan.SetAttribute("attempt", attempt)
		planSpan.End()
		req.PlanningOutput = plan.Text

		groundCtx, groundSpan := p.telemetry.StartSpan(ctx, "pipeline.Ground")
		ground, err := p.currentClient().Ground(groundCtx, req)
		if err != nil {
			groundSpan.RecordError(err)
			groundSpan.End()
			return RoundResult{}, core.NewFrameworkError("Pipeline.Ground", "model_call", err)
		}
		groundSpan.SetAttribute("attempt", attempt)
		groundSpan.End()

		outcome := Classify(ground, candidates, state.Viewport)

		task.AppendPrediction(core.PredictionRecord{
			TaskID:          task.ID,
			Timestamp:       time.Now(),
			PlanningOutput:  plan.Text,
			GroundingOutput: ground.Explanation,
			Action:          ground.Action,
			Value:           ground.Value,
			Rationale:       ground.Explanation,
		})

		switch outcome.Kind {
		case OutcomeTerminate:
			task.AppendAction(core.ActionRecord{
				TaskID: task.ID, Timestamp: time.Now(), URL: state.URL,
				Description: "TERMINATE", Success: true, Rationale: ground.Explanation,
			})
			return RoundResult{Kind: RoundTerminated}, nil

		case OutcomeWaitAndRefetch:
			p.sleep(pageLoadWaitDelay)
			return RoundResult{Kind: RoundWaitAndRefetch}, nil

		case OutcomeNoop:
			reason := outcome.NoopReason
			task.AppendAction(core.ActionRecord{
				TaskID: task.ID, Timestamp: time.Now(), URL: state.URL,
				Description: string(ground.Action), Success: false, NoopReason: &reason, Rationale: ground.Explanation,
			})
			if breach := p.guard.CheckNoopsOnly(task.Counters, task.ConfigSnapshot); breach != nil {
				return RoundResult{Kind: RoundLimitBreached, Breach: breach}, nil
			}
			continue

		case OutcomeCommit:
			task.MightNextActionCausePageNav = outcome.Pending.Action.MayCauseNavigation()
			task.Pending = outcome.Pending

			committedScreenshot := req.Screenshot
			if p.shouldHighlight(outcome.Pending) && p.highlighter != nil && outcome.Pending.ElementIndex != nil {
				if err := p.highlighter.RequestHighlight(ctx, *outcome.Pending.ElementIndex, task.Counters.Ops); err != nil {
					p.logger.WarnWithContext(ctx, "highlight request failed", map[string]interface{}{"error": err.Error()})
				}
				p.sleep(highlightRenderDelay)

				if targetedB64, capErr := p.screenshots.CaptureTargeted(ctx, task.ID, task.Counters.Ops); capErr == nil {
					if decoded, decErr := base64.StdEncoding.DecodeString(targetedB64); decErr == nil {
						committedScreenshot = decoded
					}
				}
			}

			return RoundResult{
				Kind:            RoundCommitted,
				Pending:         outcome.Pending,
				PlanningOutput:  plan.Text,
				GroundingOutput: ground.Explanation,
				Screenshot:      committedScreenshot,
			}, nil
		}
	}
}

// shouldHighlight reports whether the committed action warrants outlining
// its target before dispatch, per spec.md §4.3: "element-indexed action, or
// PRESS_ENTER".
func (p *Pipeline) shouldHighlight(pending *core.PendingAction) bool {
	return pending.ElementIndex != nil || pending.Action == core.ActionPressEnter
}

func rejectionNotice(feedback string) string {
	if feedback == "" {
		return "Your previous action was rejected by a human monitor."
	}
	return fmt.Sprintf("Your previous action was rejected by a human monitor. Feedback: %s", feedback)
}

// viewportHint appends the scrollable page's vertical scroll percentage, per
// spec.md §4.3 step 1. Returns "" for a non-scrollable page.
func viewportHint(v core.ViewportInfo) string {
	if v.PageScrollHeight <= v.Height {
		return ""
	}
	scrollable := v.PageScrollHeight - v.Height
	pct := (v.ScrollY * 100) / scrollable
	return fmt.Sprintf("Page is scrolled %d%% down.", pct)
}
