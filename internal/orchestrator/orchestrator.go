package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"neuro/internal/agentstate"
	"neuro/internal/classifier"
	"neuro/internal/config"
	"neuro/internal/llmprovider"
	"neuro/internal/logging"
	"neuro/internal/metrics"
	"neuro/internal/toolpipeline"
	"neuro/internal/toolregistry"

	"golang.org/x/sync/semaphore"
)

// Config is the orchestrator's own view of the process config, trimmed to
// what it needs (spec §4.8's "config" state: provider URL, fast/heavy
// model ids, heavy timeout, max concurrent heavy tasks).
type Config struct {
	HeavyTimeout       time.Duration
	MaxConcurrentHeavy int
}

// FromAppConfig derives an orchestrator Config from the process config.
func FromAppConfig(c config.OrchestraConfig) Config {
	cfg := Config{HeavyTimeout: c.TaskTimeout, MaxConcurrentHeavy: c.MaxConcurrentTasks}
	if cfg.HeavyTimeout <= 0 {
		cfg.HeavyTimeout = 120 * time.Second
	}
	if cfg.MaxConcurrentHeavy <= 0 {
		cfg.MaxConcurrentHeavy = 2
	}
	return cfg
}

// Orchestrator is the dual-model orchestrator (spec §4.8): process()
// dispatches a turn to the fast model/tool pipeline immediately or
// delegates it to the heavy model as a background task, tracked by a
// per-task cancellation token and reported back through a result channel.
type Orchestrator struct {
	config Config
	fast   llmprovider.Client
	heavy  llmprovider.Client
	tools  toolregistry.PolicyInvoker
	state  *agentstate.Store
	logger logging.Logger
	m      *metrics.Registry

	results chan HeavyTaskResult

	mu        sync.Mutex
	tokens    map[string]context.CancelFunc
	globalCtx context.Context
	cancelAll context.CancelFunc

	sem *semaphore.Weighted
}

// New builds an Orchestrator. fast drives the tool pipeline and simple
// commands; heavy is delegated to in the background for code generation,
// code review, and complex reasoning.
func New(cfg Config, fast, heavy llmprovider.Client, tools toolregistry.PolicyInvoker, state *agentstate.Store) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		config:    cfg,
		fast:      fast,
		heavy:     heavy,
		tools:     tools,
		state:     state,
		logger:    logging.NewComponentLogger("orchestrator"),
		results:   make(chan HeavyTaskResult, 32),
		tokens:    make(map[string]context.CancelFunc),
		globalCtx: ctx,
		cancelAll: cancel,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrentHeavy)),
	}
}

// WithMetrics attaches m, wiring heavy-task counters/latency into every
// subsequent DelegateHeavyTask call. A nil m disables recording
// (runHeavyTask no-ops the observation).
func (o *Orchestrator) WithMetrics(m *metrics.Registry) *Orchestrator {
	o.m = m
	return o
}

// taskBucket is the dispatch decision process() makes after classify_fast
// returns TaskKindNone: spec §4.8 names SimpleChat/CodeReview/
// ComplexReasoning buckets that §4.5's classify_fast/classify_complexity
// don't themselves produce (those two functions only distinguish
// SimpleCommand/CodeGeneration/None and General/CodeContext). This
// implementation resolves the gap by layering a review-verb check and a
// reasoning-verb check on top of classify_complexity's CodeContext
// result, falling through to the tool pipeline ("otherwise") when
// neither applies — recorded as an Open Question decision.
type taskBucket int

const (
	bucketSimpleCommand taskBucket = iota
	bucketSimpleChat
	bucketCodeGeneration
	bucketCodeReview
	bucketComplexReasoning
	bucketToolPipeline
)

var reviewVerbs = []string{"review", "revisa", "revisión", "revision", "code review", "audita", "audit"}
var reasoningVerbs = []string{
	"why", "explain", "analyze", "analyse", "design", "compare", "trade-off", "tradeoff",
	"por qué", "porque", "explica", "analiza", "diseña", "compara",
}

func classifyBucket(input string) (taskBucket, classifier.FastResult) {
	fast := classifier.ClassifyFast(input)
	switch fast.Kind {
	case classifier.TaskKindSimpleCommand:
		return bucketSimpleCommand, fast
	case classifier.TaskKindCodeGeneration:
		return bucketCodeGeneration, fast
	}

	if containsAnyPhrase(input, reviewVerbs) {
		return bucketCodeReview, fast
	}
	if classifier.ClassifyComplexity(input) == classifier.ComplexityGeneral {
		return bucketSimpleChat, fast
	}
	if containsAnyPhrase(input, reasoningVerbs) {
		return bucketComplexReasoning, fast
	}
	return bucketToolPipeline, fast
}

func containsAnyPhrase(input string, phrases []string) bool {
	lowered := strings.ToLower(input)
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// Process implements process(input) → OrchestratorResponse (spec §4.8),
// using the orchestrator's default tool view.
func (o *Orchestrator) Process(ctx context.Context, input string) Response {
	return o.ProcessWithTools(ctx, input, o.tools)
}

// ProcessWithTools is Process scoped to a caller-supplied tool view — the
// Router Orchestrator (spec §4.9) uses this to pass a mode-filtered
// (Ask/Build/Plan) registry per request without mutating shared state.
func (o *Orchestrator) ProcessWithTools(ctx context.Context, input string, tools toolregistry.PolicyInvoker) Response {
	bucket, fast := classifyBucket(input)

	switch bucket {
	case bucketSimpleCommand:
		return o.handleSimpleCommand(ctx, fast.Action, tools)

	case bucketCodeGeneration:
		prompt := fmt.Sprintf("Generate %s code for the following request. Respond with code only, no commentary.\n\n%s", fast.Language, fast.Description)
		return o.DelegateHeavyTask(ctx, "code generation: "+fast.Description, prompt, 60)

	case bucketCodeReview:
		prompt := "Review the following request and produce a thorough code review with concrete suggestions:\n\n" + input
		return o.DelegateHeavyTask(ctx, "code review", prompt, 90)

	case bucketComplexReasoning:
		prompt := "Think through the following request carefully and give a well-reasoned answer:\n\n" + input
		return o.DelegateHeavyTask(ctx, "complex reasoning", prompt, 90)

	case bucketSimpleChat, bucketToolPipeline:
		return o.runToolPipeline(ctx, input, tools)

	default:
		return ErrorResponse("unrecognized dispatch bucket")
	}
}

func (o *Orchestrator) runToolPipeline(ctx context.Context, input string, tools toolregistry.PolicyInvoker) Response {
	history := toLLMMessages(o.state.GetContextMessages(20))
	pipeline := toolpipeline.New(o.fast, tools)
	outcome := pipeline.Run(ctx, history, input)

	o.state.AddMessage(ctx, agentstate.Message{Role: "user", Content: input})
	if outcome.ToolName != "" {
		o.state.AddMessage(ctx, agentstate.Message{Role: "assistant", Content: outcome.Result})
		return ToolResultResponse(outcome.ToolName, outcome.Result, outcome.Success)
	}
	o.state.AddMessage(ctx, agentstate.Message{Role: "assistant", Content: outcome.Reply})
	return Text(outcome.Reply)
}

func (o *Orchestrator) handleSimpleCommand(ctx context.Context, action string, tools toolregistry.PolicyInvoker) Response {
	switch action {
	case "exit":
		return Text("goodbye")
	case "help":
		return Text("Available commands: help, clear, status, list, history, exit. Anything else is routed to the assistant.")
	case "clear":
		o.state.ClearHistory()
		return Text("conversation history cleared")
	case "status":
		return Text(fmt.Sprintf("fast model: %s, heavy model: %s", o.fast.Model(), o.heavy.Model()))
	case "list":
		result, err := tools.Invoke(ctx, "list_directory", map[string]any{"path": "."})
		if err != nil {
			return ErrorResponse(err.Error())
		}
		return ToolResultResponse("list_directory", toolregistry.Truncate(result), !toolregistry.IsFailureText(result))
	case "history":
		messages := o.state.GetContextMessages(0)
		text := ""
		for _, m := range messages {
			text += m.Role + ": " + m.Content + "\n"
		}
		return Text(text)
	default:
		return ErrorResponse("unrecognized simple command: " + action)
	}
}

func toLLMMessages(messages []agentstate.Message) []llmprovider.Message {
	out := make([]llmprovider.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llmprovider.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
