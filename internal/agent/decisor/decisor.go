package decisor

import (
	"context"
	"errors"
	"time"

	"github.com/cepclima/server/internal/agent/extract"
	"github.com/cepclima/server/internal/agent/model"
	logx "github.com/cepclima/server/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Decisor runs the strategies in order and always returns a classification.
type Decisor struct {
	strategies []Strategy
	fallback   Strategy
	timeout    time.Duration
}

// New builds a decisor that tries each strategy in order and ends with
// fallback, which is also used directly when a result is untrusted.
func New(fallback Strategy, timeout time.Duration, strategies ...Strategy) *Decisor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Decisor{
		strategies: append(append([]Strategy(nil), strategies...), fallback),
		fallback:   fallback,
		timeout:    timeout,
	}
}

// Strategies returns the names of the strategies in the order they run.
func (d *Decisor) Strategies() []string {
	names := make([]string, len(d.strategies))
	for i, s := range d.strategies {
		names[i] = s.Name()
	}
	return names
}

// Classify returns the first acceptable result. It never fails: the worst
// case is a generic REQUEST_LOCATION. Input is clipped to
// extract.MaxInputRunes before any strategy sees it.
func (d *Decisor) Classify(ctx context.Context, input string) model.Classification {
	input = extract.ClipInput(input)
	last := len(d.strategies) - 1
	for i, s := range d.strategies {
		c, err := d.run(ctx, s, input)
		if err == nil {
			logx.Debug().Str("strategy", s.Name()).Str("action", c.Action.String()).Msg("input classified")
			return c.Normalize()
		}

		if errors.Is(err, ErrUntrustedExtraction) && i < last {
			logx.Warn().Err(err).Str("strategy", s.Name()).Msg("untrusted extraction, using deterministic fallback")
			if c, err := d.run(ctx, d.fallback, input); err == nil {
				return c.Normalize()
			}
			break
		}

		logx.Warn().Err(err).Str("strategy", s.Name()).Msg("strategy failed, trying next")
	}

	return model.Classification{
		Action:          model.ActionRequestLocation,
		Justification:   "Nenhuma estratégia de classificação concluiu",
		FriendlyMessage: "Desculpe, não consegui entender agora. Pode me dizer o CEP ou a cidade que você quer consultar? 😊",
	}
}

func (d *Decisor) run(ctx context.Context, s Strategy, input string) (model.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return s.Classify(ctx, input)
}
