package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"

	"RegimeGuard/internal/domain/models"
	domsvc "RegimeGuard/internal/domain/service"
	"RegimeGuard/pkg/logger"
)

const systemPrompt = "You are a risk officer reviewing the output of a deterministic market regime engine. " +
	"Build context from the indicators provided but do not override the regime or the veto. " +
	"Answer in exactly three lines:\n" +
	"VOTE: PROCEED or HOLD\n" +
	"CONFIDENCE: an integer from 0 to 100\n" +
	"REASONING: one or two sentences."

var errEmptyCompletion = errors.New("advisor: empty completion")

type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxTokens       int
	Timeout         time.Duration
	BreakerFailures uint32        // consecutive failures before the breaker opens
	BreakerCooldown time.Duration // time spent open before a half-open probe
}

// Narrator asks an OpenAI-compatible chat model to comment on an evaluation.
// Calls go through a circuit breaker so a failing provider is skipped quickly.
type Narrator struct {
	client    *openai.Client
	model     string
	maxTokens int64
	cb        *gobreaker.CircuitBreaker
	log       *logger.Logger
}

var _ domsvc.Narrator = (*Narrator)(nil)

func New(cfg Config, log *logger.Logger, opts ...option.RequestOption) *Narrator {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = time.Minute
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	reqOpts = append(reqOpts, opts...)
	client := openai.NewClient(reqOpts...)

	n := &Narrator{
		client:    &client,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		log:       log,
	}
	failures := cfg.BreakerFailures
	n.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "advisor",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("advisor breaker state changed",
				logger.String("from", from.String()), logger.String("to", to.String()))
		},
	})
	return n
}

func (n *Narrator) Enabled() bool { return true }

// State reports the breaker state: closed, half-open or open.
func (n *Narrator) State() string { return n.cb.State().String() }

// Narrate returns the model's reply. It never changes the evaluation.
func (n *Narrator) Narrate(ctx context.Context, e *models.Evaluation) (string, error) {
	if e == nil {
		return "", fmt.Errorf("advisor: nil evaluation")
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(n.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(e)),
		},
		MaxCompletionTokens: openai.Int(n.maxTokens),
	}

	out, err := n.cb.Execute(func() (interface{}, error) {
		resp, err := n.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return nil, errEmptyCompletion
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("advisor narrate %s: %w", e.Symbol, err)
	}

	text := strings.TrimSpace(out.(string))
	if reply, ok := ParseReply(text); ok {
		n.log.Debug("advisor reply", logger.String("symbol", string(e.Symbol)),
			logger.String("vote", reply.Vote), logger.Int("confidence", reply.Confidence))
	}
	return text, nil
}

// BuildPrompt renders the evaluation as the user message.
func BuildPrompt(e *models.Evaluation) string {
	s := e.Snapshot
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", e.Symbol)
	fmt.Fprintf(&b, "Regime: %s (rule %s)\n", e.Regime.Type, e.Regime.Rule)
	if e.Veto.ShouldVeto {
		fmt.Fprintf(&b, "Veto: YES, severity %s\n", e.Veto.SeverityString())
		for _, r := range e.Veto.Reasons {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	} else {
		b.WriteString("Veto: NO\n")
	}
	fmt.Fprintf(&b, "Price %.2f, MA50 %.2f, MA200 %.2f, trend %s, position %s\n",
		s.Trend.Current, s.Trend.MA50, s.Trend.MA200, s.Trend.Trend, s.PricePosition)
	fmt.Fprintf(&b, "RSI %.1f, MACD %.3f/%.3f (%s), ADX %.2f\n",
		s.RSI, s.MACD.Value, s.MACD.Signal, s.MACD.Condition, s.ADX)
	fmt.Fprintf(&b, "Bollinger %s, bandwidth %.3f\n", s.Bollinger.Position, s.Bollinger.Bandwidth)
	fmt.Fprintf(&b, "OBV trend %s, liquidity %s, volume %s", s.OBV.Trend, s.OBV.Liquidity, s.OBV.VolumeTrend)
	if s.OBV.Divergence != models.DivergenceNone {
		fmt.Fprintf(&b, ", %s divergence", s.OBV.Divergence)
	}
	fmt.Fprintf(&b, "\nVolatility %.1f%%, VIX proxy %.1f (%s)\n", s.Volatility, s.VIX.Value, s.VIX.Bucket)
	return b.String()
}
