package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/configstore"
	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/export"
	"github.com/itsneelabh/agentctl/limits"
	"github.com/itsneelabh/agentctl/monitor"
	"github.com/itsneelabh/agentctl/pipeline"
	"github.com/itsneelabh/agentctl/screenshot"
	"github.com/itsneelabh/agentctl/store"
)

// --- fakes -----------------------------------------------------------------

type fakeHelper struct {
	mu              sync.Mutex
	pageStateReqs   int
	actionReqs      []core.ActionKind
	highlightReqs   int
	closed          bool
}

func (f *fakeHelper) RequestPageState(ctx context.Context, isMonitorRetry bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageStateReqs++
	return nil
}

func (f *fakeHelper) RequestAction(ctx context.Context, action core.ActionKind, elementIndex *int, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actionReqs = append(f.actionReqs, action)
	return nil
}

func (f *fakeHelper) RequestHighlight(ctx context.Context, elementIndex int, promptingIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.highlightReqs++
	return nil
}

func (f *fakeHelper) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakePanel struct {
	mu          sync.Mutex
	escalations []core.Severity
	ended       []string
	exports     int
}

func (p *fakePanel) NotifyReady(ctx context.Context) error { return nil }
func (p *fakePanel) NotifyTaskStarted(ctx context.Context, taskID string, success bool, taskSpec string) error {
	return nil
}
func (p *fakePanel) NotifyActionCandidate(ctx context.Context, description string) error { return nil }
func (p *fakePanel) NotifyEscalation(ctx context.Context, severity core.Severity, explanation string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.escalations = append(p.escalations, severity)
	return nil
}
func (p *fakePanel) NotifyHistoryEntry(ctx context.Context, actionDesc string, success bool, explanation string) error {
	return nil
}
func (p *fakePanel) Notify(ctx context.Context, msg string, details string) error { return nil }
func (p *fakePanel) NotifyTaskEnded(ctx context.Context, taskID string, details string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, details)
	return nil
}
func (p *fakePanel) NotifyHistoryExport(ctx context.Context, zipBytes []byte, fileName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exports++
	return nil
}
func (p *fakePanel) NotifyError(ctx context.Context, msg string) error { return nil }
func (p *fakePanel) Close() error                                     { return nil }

type fakeInjector struct {
	helper *fakeHelper
}

func (i *fakeInjector) Inject(ctx context.Context, tabID int) (HelperPort, error) {
	i.helper = &fakeHelper{}
	return i.helper, nil
}

type fakeTabs struct {
	tabID int
	title string
}

func (t *fakeTabs) ActiveTab(ctx context.Context) (int, string, error) {
	return t.tabID, t.title, nil
}

type fakeCapturer struct{}

func (fakeCapturer) Capture(ctx context.Context) ([]byte, error) { return []byte("png"), nil }

// scriptedClient returns one scripted ground response per call, looping on
// the last entry once exhausted.
type scriptedClient struct {
	responses []aiclient.GroundResponse
	calls     int
	judge     aiclient.JudgeResponse
}

func (c *scriptedClient) Plan(ctx context.Context, req aiclient.Request) (*aiclient.PlanResponse, error) {
	return &aiclient.PlanResponse{Text: "plan"}, nil
}

func (c *scriptedClient) Ground(ctx context.Context, req aiclient.Request) (*aiclient.GroundResponse, error) {
	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	resp := c.responses[idx]
	return &resp, nil
}

func (c *scriptedClient) Judge(ctx context.Context, req aiclient.Request) (*aiclient.JudgeResponse, error) {
	return &c.judge, nil
}

// --- harness -----------------------------------------------------------------

type harness struct {
	ctrl     *Controller
	injector *fakeInjector
	panel    *fakePanel
	tabs     *fakeTabs
	client   *scriptedClient
}

func newHarness(t *testing.T, cfg configstore.Config, client *scriptedClient) *harness {
	t.Helper()
	ctx := context.Background()

	backend := configstore.NewInMemoryBackend()
	require.NoError(t, backend.Save(ctx, cfg))
	cs, err := configstore.NewStore(ctx, backend, nil)
	require.NoError(t, err)

	guard := limits.New(nil)
	screenshots := screenshot.NewCoordinator(fakeCapturer{}, store.NewInMemoryScreenshotStore())
	pl := pipeline.New(client, screenshots, guard)
	judge := monitor.NewJudge(client, nil, nil)
	panel := &fakePanel{}
	handshake := monitor.NewHandshake(panel)
	exporter := export.NewExporter(store.NewInMemoryLogStore(), store.NewInMemoryScreenshotStore())
	injector := &fakeInjector{}
	tabs := &fakeTabs{tabID: 1, title: "start"}

	ctrl := New(Deps{
		ConfigStore: cs,
		Pipeline:    pl,
		Judge:       judge,
		Handshake:   handshake,
		Guard:       guard,
		Exporter:    exporter,
		Screenshots: screenshots,
		Injector:    injector,
		Tabs:        tabs,
	})
	ctrl.SetPanel(panel)

	return &harness{ctrl: ctrl, injector: injector, panel: panel, tabs: tabs, client: client}
}

func noSleep(time.Duration) {}

func baseElement() core.InteractiveElement {
	return core.InteractiveElement{Description: "Login button", CenterX: 10, CenterY: 20}
}

func pageState() core.PageState {
	return core.PageState{
		Elements: []core.InteractiveElement{baseElement()},
		Viewport: core.ViewportInfo{Width: 800, Height: 600, PageScrollHeight: 600},
		URL:      "https://example.com",
	}
}

// --- tests -------------------------------------------------------------------

func TestFSM_NextTableRejectsUnknownPair(t *testing.T) {
	_, ok := Next(StateIdle, EventPageStateReceived)
	assert.False(t, ok)

	to, ok := Next(StateIdle, EventStartTaskAccepted)
	assert.True(t, ok)
	assert.Equal(t, StateWaitingForContentScriptInit, to)
}

func TestStartTask_RejectsWithoutEULA(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = false
	h := newHarness(t, cfg, &scriptedClient{})

	err := h.ctrl.StartTask(context.Background(), "book a flight", 1)
	assert.ErrorIs(t, err, core.ErrEULANotAccepted)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestStartTask_RejectsEmptySpecification(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	h := newHarness(t, cfg, &scriptedClient{})

	err := h.ctrl.StartTask(context.Background(), "", 1)
	assert.ErrorIs(t, err, core.ErrEmptySpecification)
}

func TestStartTask_RejectsWhenAlreadyRunning(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	h := newHarness(t, cfg, &scriptedClient{})

	ctx := context.Background()
	require.NoError(t, h.ctrl.StartTask(ctx, "book a flight", 1))

	err := h.ctrl.StartTask(ctx, "another task", 1)
	assert.ErrorIs(t, err, core.ErrTaskAlreadyRunning)
}

func TestHappyPath_SingleClickDispatchesWithoutJudgeWhenMonitorModeOn(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	cfg.MonitorMode = true // always require human review

	client := &scriptedClient{
		responses: []aiclient.GroundResponse{
			{ElementLetter: "A", Action: core.ActionClick, Explanation: "click the login button"},
		},
	}
	h := newHarness(t, cfg, client)
	ctx := context.Background()

	require.NoError(t, h.ctrl.StartTask(ctx, "log in", 1))
	require.NoError(t, h.ctrl.HandleHelperReady(ctx))
	require.Equal(t, StateWaitingForPageState, h.ctrl.State())

	require.NoError(t, h.ctrl.HandlePageState(ctx, pageState()))
	assert.Equal(t, StateWaitingForMonitorResponse, h.ctrl.State())
	assert.Len(t, h.panel.escalations, 1)

	require.NoError(t, h.ctrl.HandleMonitorApproved(ctx))
	assert.Equal(t, StateWaitingForAction, h.ctrl.State())
	assert.Equal(t, []core.ActionKind{core.ActionClick}, h.injector.helper.actionReqs)
}

func TestAutoMonitorEscalation_HighSeverityEscalatesThenRejectionReturnsToPageState(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	cfg.MonitorMode = false
	cfg.AutoMonitorThreshold = core.SeverityHigh

	client := &scriptedClient{
		responses: []aiclient.GroundResponse{
			{ElementLetter: "A", Action: core.ActionClick, Explanation: "click the delete button"},
		},
		judge: aiclient.JudgeResponse{Severity: core.SeverityHigh, Explanation: "destructive action"},
	}
	h := newHarness(t, cfg, client)
	ctx := context.Background()

	require.NoError(t, h.ctrl.StartTask(ctx, "delete the account", 1))
	require.NoError(t, h.ctrl.HandleHelperReady(ctx))
	require.NoError(t, h.ctrl.HandlePageState(ctx, pageState()))

	assert.Equal(t, StateWaitingForMonitorResponse, h.ctrl.State())
	require.Len(t, h.panel.escalations, 1)
	assert.Equal(t, core.SeverityHigh, h.panel.escalations[0])

	require.NoError(t, h.ctrl.HandleMonitorRejected(ctx, "too risky, try something else"))
	assert.Equal(t, StateWaitingForPageState, h.ctrl.State())
	assert.Empty(t, h.injector.helper.actionReqs)
}

func TestAutoMonitorEscalation_LowSeverityDispatchesDirectly(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	cfg.MonitorMode = false
	cfg.AutoMonitorThreshold = core.SeverityHigh

	client := &scriptedClient{
		responses: []aiclient.GroundResponse{
			{ElementLetter: "A", Action: core.ActionClick, Explanation: "click the login button"},
		},
		judge: aiclient.JudgeResponse{Severity: core.SeverityLow, Explanation: "benign"},
	}
	h := newHarness(t, cfg, client)
	ctx := context.Background()

	require.NoError(t, h.ctrl.StartTask(ctx, "log in", 1))
	require.NoError(t, h.ctrl.HandleHelperReady(ctx))
	require.NoError(t, h.ctrl.HandlePageState(ctx, pageState()))

	assert.Equal(t, StateWaitingForAction, h.ctrl.State())
	assert.Equal(t, []core.ActionKind{core.ActionClick}, h.injector.helper.actionReqs)
	assert.Empty(t, h.panel.escalations)
}

func TestActionDone_NoNavigationReturnsToWaitingForPageState(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	cfg.MonitorMode = false
	cfg.AutoMonitorThreshold = core.SeverityCatastrophic

	client := &scriptedClient{
		responses: []aiclient.GroundResponse{
			{ElementLetter: "A", Action: core.ActionClick, Explanation: "click the login button"},
		},
	}
	h := newHarness(t, cfg, client)
	ctx := context.Background()

	require.NoError(t, h.ctrl.StartTask(ctx, "log in", 1))
	require.NoError(t, h.ctrl.HandleHelperReady(ctx))
	require.NoError(t, h.ctrl.HandlePageState(ctx, pageState()))
	require.Equal(t, StateWaitingForAction, h.ctrl.State())

	require.NoError(t, h.ctrl.HandleActionDone(ctx, true, noSleep))
	assert.Equal(t, StateWaitingForPageState, h.ctrl.State())
}

func TestActionDone_NavigationReinjectsHelper(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	cfg.MonitorMode = false
	cfg.AutoMonitorThreshold = core.SeverityCatastrophic

	client := &scriptedClient{
		responses: []aiclient.GroundResponse{
			{ElementLetter: "A", Action: core.ActionClick, Explanation: "click the login button"},
		},
	}
	h := newHarness(t, cfg, client)
	ctx := context.Background()

	require.NoError(t, h.ctrl.StartTask(ctx, "log in", 1))
	require.NoError(t, h.ctrl.HandleHelperReady(ctx))
	require.NoError(t, h.ctrl.HandlePageState(ctx, pageState()))
	require.Equal(t, StateWaitingForAction, h.ctrl.State())

	h.tabs.tabID = 2
	h.tabs.title = "next page"
	require.NoError(t, h.ctrl.HandleActionDone(ctx, true, noSleep))
	assert.Equal(t, StateWaitingForContentScriptInit, h.ctrl.State())
}

func TestTerminate_ExportsHistoryAndResetsToIdle(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	h := newHarness(t, cfg, &scriptedClient{})
	ctx := context.Background()

	require.NoError(t, h.ctrl.StartTask(ctx, "log in", 1))
	require.NoError(t, h.ctrl.HandleHelperReady(ctx))

	h.ctrl.Terminate(ctx, "user aborted", false)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, 1, h.panel.exports)
	assert.Equal(t, []string{"user aborted"}, h.panel.ended)
}

func TestKillTask_SetsAbortSignalOnActiveTask(t *testing.T) {
	cfg := configstore.DefaultConfig()
	cfg.EULAAccepted = true
	h := newHarness(t, cfg, &scriptedClient{})
	ctx := context.Background()

	require.NoError(t, h.ctrl.StartTask(ctx, "log in", 1))
	h.ctrl.HandleKillTask()
	// nothing to assert on directly without reaching into the unexported
	// task field; exercised here for the no-panic, no-active-task-nil path.
	h.ctrl.HandleKillTask()
}
