// Command agentctl wires the Agent Controller and its collaborators into a
// runnable process for local/manual exercising. The real host environment —
// a browser extension's content-script/background-page messaging — is out
// of scope per spec.md §1; this entrypoint substitutes a console-driven
// HelperPort/PanelPort pair so the FSM, Decision Pipeline, and Auto-Monitor
// Judge can be driven end to end from a terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/configstore"
	"github.com/itsneelabh/agentctl/controller"
	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/export"
	"github.com/itsneelabh/agentctl/limits"
	"github.com/itsneelabh/agentctl/monitor"
	"github.com/itsneelabh/agentctl/pipeline"
	"github.com/itsneelabh/agentctl/screenshot"
	"github.com/itsneelabh/agentctl/store"
	"github.com/itsneelabh/agentctl/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := telemetry.NewLogger("agentctl")
	tel := telemetry.NewInProcessOTelProvider("agentctl")

	cs, err := buildConfigStore(ctx, logger)
	if err != nil {
		log.Fatalf("configstore: %v", err)
	}
	cs.Watch(ctx)

	cfg := cs.Current()
	client, err := buildAIClient(ctx, cfg, logger, tel)
	if err != nil {
		log.Fatalf("aiclient: %v", err)
	}

	logStore, screenshotStore := buildStores(logger)

	guard := limits.New(tel)
	capturer := &placeholderCapturer{}
	coordinator := screenshot.NewCoordinator(capturer, screenshotStore)
	console := newConsolePorts(logger)

	pl := pipeline.New(client, coordinator, guard,
		pipeline.WithLogger(logger),
		pipeline.WithTelemetry(tel),
		pipeline.WithHighlighter(console),
	)
	judge := monitor.NewJudge(client, logger, tel)
	handshake := monitor.NewHandshake(console)
	exporter := export.NewExporter(logStore, screenshotStore)

	ctrl := controller.New(controller.Deps{
		ConfigStore: cs,
		Pipeline:    pl,
		Judge:       judge,
		Handshake:   handshake,
		Guard:       guard,
		Exporter:    exporter,
		Screenshots: coordinator,
		Injector:    console,
		Tabs:        console,
		Logger:      logger,
		Telemetry:   tel,
	})
	ctrl.SetPanel(console)

	cs.OnChange(func(prev, next configstore.Config) {
		if prev.AIProviderType == next.AIProviderType {
			return
		}
		logger.Info("AI provider changed, reconstructing engine", map[string]interface{}{
			"from": string(prev.AIProviderType), "to": string(next.AIProviderType),
		})
		newClient, err := buildAIClient(ctx, next, logger, tel)
		if err != nil {
			logger.Error("rebuilding ai client after provider change failed", map[string]interface{}{"error": err.Error()})
			return
		}
		pl.SetClient(newClient)
		judge.SetClient(newClient)
	})

	logger.Info("agentctl ready", map[string]interface{}{"provider": string(cfg.AIProviderType)})
	runConsoleLoop(ctx, ctrl, console, logger)
}

func buildConfigStore(ctx context.Context, logger core.Logger) (*configstore.Store, error) {
	var backend configstore.Backend
	if redisURL := os.Getenv("AGENTCTL_REDIS_URL"); redisURL != "" {
		client, err := store.NewRedisClient(store.RedisClientOptions{
			RedisURL: redisURL, Namespace: "agentctl", Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		backend = configstore.NewRedisBackend(client)
	} else {
		path := getEnvOrDefault("AGENTCTL_CONFIG_PATH", "./agentctl-config.yaml")
		backend = configstore.NewFileBackend(path, logger)
	}
	return configstore.NewStore(ctx, backend, logger)
}

func buildAIClient(ctx context.Context, cfg configstore.Config, logger core.Logger, tel core.Telemetry) (aiclient.Client, error) {
	provider := cfg.AIProviderType
	if provider == "" {
		provider = aiclient.ProviderOpenAI
	}
	aiCfg := aiclient.DefaultConfig(provider)

	opts := []aiclient.Option{aiclient.WithLogger(logger), aiclient.WithTelemetry(tel)}
	if key := cfg.APIKeys[provider]; key != "" {
		opts = append(opts, aiclient.WithAPIKey(key))
	} else if envKey := os.Getenv("AGENTCTL_API_KEY"); envKey != "" {
		opts = append(opts, aiclient.WithAPIKey(envKey))
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		opts = append(opts, aiclient.WithRegion(region))
	}
	if model := os.Getenv("AGENTCTL_MODEL"); model != "" {
		opts = append(opts, aiclient.WithModel(model))
	}

	return aiclient.New(ctx, aiCfg, opts...)
}

func buildStores(logger core.Logger) (store.LogStore, store.ScreenshotStore) {
	redisURL := os.Getenv("AGENTCTL_REDIS_URL")
	if redisURL == "" {
		return store.NewInMemoryLogStore(), store.NewInMemoryScreenshotStore()
	}
	client, err := store.NewRedisClient(store.RedisClientOptions{
		RedisURL: redisURL, Namespace: "agentctl", Logger: logger,
	})
	if err != nil {
		logger.Warn("falling back to in-memory stores", map[string]interface{}{"error": err.Error()})
		return store.NewInMemoryLogStore(), store.NewInMemoryScreenshotStore()
	}
	return store.NewRedisLogStore(client), store.NewRedisScreenshotStore(client)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// placeholderCapturer stands in for the browser's captureVisibleTab call,
// out of scope per spec.md §1; it returns a fixed 1x1 transparent PNG so the
// Decision Pipeline and Auto-Monitor Judge still receive a non-nil
// screenshot payload during manual exercising.
type placeholderCapturer struct{}

var onePixelPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func (placeholderCapturer) Capture(ctx context.Context) ([]byte, error) {
	return onePixelPNG, nil
}

// runConsoleLoop reads newline-delimited commands from stdin so an operator
// can drive the controller without a real browser attached.
//
//	start <spec>            start a task against the (fake) active tab
//	ready                   simulate the helper's READY message
//	page                    simulate a PAGE_STATE message with one element
//	action-done             simulate ACTION_DONE{success=true}
//	action-failed           simulate ACTION_DONE{success=false}
//	approve                 approve a pending monitor escalation
//	reject <feedback>       reject a pending monitor escalation
//	kill                    abort the running task
//	quit                    exit
func runConsoleLoop(ctx context.Context, ctrl *controller.Controller, console *consolePorts, logger core.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("agentctl console ready; type 'help' for commands")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		var err error
		switch cmd {
		case "help":
			fmt.Println("start <spec> | ready | page | action-done | action-failed | approve | reject <feedback> | kill | quit")
			continue
		case "start":
			err = ctrl.StartTask(ctx, arg, 1)
		case "ready":
			err = ctrl.HandleHelperReady(ctx)
		case "page":
			err = ctrl.HandlePageState(ctx, console.samplePageState())
		case "action-done":
			err = ctrl.HandleActionDone(ctx, true, nil)
		case "action-failed":
			err = ctrl.HandleActionDone(ctx, false, nil)
		case "approve":
			err = ctrl.HandleMonitorApproved(ctx)
		case "reject":
			err = ctrl.HandleMonitorRejected(ctx, arg)
		case "kill":
			ctrl.HandleKillTask()
		case "quit":
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
			continue
		}
		if err != nil {
			logger.Error("command failed", map[string]interface{}{"command": cmd, "error": err.Error()})
		}
		fmt.Printf("state: %s\n", ctrl.State())
	}
}
