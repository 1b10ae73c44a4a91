package router

import (
	"context"
	"encoding/json"
	"strings"

	"neuro/internal/classifycache"
	"neuro/internal/llmprovider"
	"neuro/internal/toolregistry"

	"github.com/kaptinlin/jsonrepair"
)

const classifySystemPrompt = `You route a user's message to exactly one of three handling strategies. Reply with a single JSON object and nothing else, in exactly this shape:
{"route": "direct_response", "confidence": 0.0-1.0}
{"route": "tool_execution", "mode": "ask"|"build"|"plan", "needs_raptor": true|false, "confidence": 0.0-1.0}
{"route": "full_pipeline", "confidence": 0.0-1.0}

Rules:
- "direct_response" is for small talk, definitions, or anything answerable without looking at the project.
- "tool_execution" is for requests that need a tool (reading/writing files, running commands, searching) or project context. Use mode "ask" for read-only investigation, "build" when the request may need to write files or run commands, "plan" when the user explicitly asks for a plan without execution. Set needs_raptor true when project-wide semantic context would help.
- "full_pipeline" is for broad, multi-step goals (refactors, audits, multi-file changes) that need planning and synthesis across several steps.
- confidence reflects how sure you are; be conservative below 0.8 when the request is ambiguous.

Example: {"route": "tool_execution", "mode": "ask", "needs_raptor": true, "confidence": 0.92}`

type classifyReply struct {
	Route       string  `json:"route"`
	Mode        string  `json:"mode"`
	NeedsRAPTOR bool    `json:"needs_raptor"`
	Confidence  float64 `json:"confidence"`
}

// ClassifierConfig tunes the cache and the confidence safety net.
type ClassifierConfig struct {
	CacheCapacity    int
	SimilarityThresh float64
	MinConfidence    float64
}

// DefaultMinConfidence is the floor below which a classification is
// downgraded to a safe default (spec §4.9 step 2, spec §8 property 9).
const DefaultMinConfidence = 0.8

// Classifier wraps the fast model's JSON-mode route prompt behind the
// classification cache.
type Classifier struct {
	client        llmprovider.Client
	cache         *classifycache.Cache
	minConfidence float64
}

// NewClassifier builds a Classifier from cfg, applying package defaults for
// any zero-valued field.
func NewClassifier(client llmprovider.Client, cfg ClassifierConfig) *Classifier {
	minConfidence := cfg.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Classifier{
		client:        client,
		cache:         classifycache.New(cfg.CacheCapacity, cfg.SimilarityThresh),
		minConfidence: minConfidence,
	}
}

// Classify implements spec §4.9 step 2: cache lookup first, then a JSON
// classification prompt to the fast model on a miss. Confidence below the
// configured floor is downgraded to a safe ToolExecution{Ask,
// needs_raptor:true} decision regardless of the model's chosen route.
func (c *Classifier) Classify(ctx context.Context, query string) Decision {
	if cached, ok := c.cache.Get(query); ok {
		return decisionFromCached(query, cached)
	}

	decision, cacheable := c.classifyViaModel(ctx, query)
	if cacheable {
		c.cache.Put(query, classifycache.Decision{
			Route:      decision.Kind.String(),
			Confidence: decision.Confidence,
			NeedsRAG:   decision.NeedsRAPTOR,
			Mode:       modeName(decision.Mode),
		})
	}
	return decision
}

func (c *Classifier) classifyViaModel(ctx context.Context, query string) (Decision, bool) {
	resp, err := c.client.Complete(ctx, llmprovider.Request{
		Messages: []llmprovider.Message{
			{Role: "system", Content: classifySystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: 0.1,
		MaxTokens:   256,
		JSONMode:    true,
	})
	if err != nil {
		return safeDowngrade(query), false
	}

	reply, ok := parseClassifyReply(resp.Content)
	if !ok {
		return safeDowngrade(query), false
	}

	decision := decisionFromReply(query, reply)
	if decision.Confidence < c.minConfidence {
		return safeDowngrade(query), true
	}
	return decision, true
}

func decisionFromReply(query string, reply classifyReply) Decision {
	switch strings.ToLower(strings.TrimSpace(reply.Route)) {
	case "direct_response":
		return Decision{Kind: DecisionDirectResponse, Query: query, Confidence: reply.Confidence}
	case "full_pipeline":
		return Decision{Kind: DecisionFullPipeline, Query: query, Confidence: reply.Confidence}
	case "tool_execution":
		return Decision{
			Kind:        DecisionToolExecution,
			Query:       query,
			Confidence:  reply.Confidence,
			Mode:        parseMode(reply.Mode),
			NeedsRAPTOR: reply.NeedsRAPTOR,
		}
	default:
		return safeDowngrade(query)
	}
}

func decisionFromCached(query string, cached classifycache.Decision) Decision {
	switch cached.Route {
	case DecisionDirectResponse.String():
		return Decision{Kind: DecisionDirectResponse, Query: query, Confidence: cached.Confidence}
	case DecisionFullPipeline.String():
		return Decision{Kind: DecisionFullPipeline, Query: query, Confidence: cached.Confidence}
	case DecisionToolExecution.String():
		return Decision{
			Kind:        DecisionToolExecution,
			Query:       query,
			Confidence:  cached.Confidence,
			Mode:        parseMode(cached.Mode),
			NeedsRAPTOR: cached.NeedsRAG,
		}
	default:
		return safeDowngrade(query)
	}
}

func parseMode(raw string) toolregistry.Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "build":
		return toolregistry.ModeBuild
	case "plan":
		return toolregistry.ModePlan
	default:
		return toolregistry.ModeAsk
	}
}

func modeName(mode toolregistry.Mode) string {
	switch mode {
	case toolregistry.ModeBuild:
		return "build"
	case toolregistry.ModePlan:
		return "plan"
	default:
		return "ask"
	}
}

func parseClassifyReply(raw string) (classifyReply, bool) {
	var reply classifyReply
	if err := json.Unmarshal([]byte(raw), &reply); err == nil {
		return reply, true
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return classifyReply{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &reply); err != nil {
		return classifyReply{}, false
	}
	return reply, true
}
