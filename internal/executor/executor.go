package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"chatd/internal/engine"
	"chatd/internal/stream"
	"chatd/pkg/types"
)

const loadingMessage = "Loading model..."

// Executor owns the model cache and serialises work on it.
type Executor struct {
	cfg Config
	log zerolog.Logger

	inbox  *queue[types.Command]
	outbox *queue[types.Event]
	events chan types.Event

	mu         sync.Mutex
	pendingGen int
	signal     *engine.StoppingSignal
	running    bool
}

// New returns an idle executor; call Run to start processing.
func New(cfg Config) *Executor {
	cfg = cfg.withDefaults()
	return &Executor{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "executor").Logger(),
		inbox:  newQueue[types.Command](),
		outbox: newQueue[types.Event](),
		events: make(chan types.Event),
	}
}

// Events returns the single event stream. It is closed when Run returns.
func (e *Executor) Events() <-chan types.Event { return e.events }

// Loaded reports the model currently resident in the cache.
func (e *Executor) Loaded() (types.ModelDescriptor, bool) { return e.cfg.Cache.Current() }

// Send delivers a command without blocking.
func (e *Executor) Send(cmd types.Command) {
	commandsTotal.WithLabelValues(cmd.CommandType()).Inc()
	switch c := cmd.(type) {
	case types.InterruptCommand:
		e.mu.Lock()
		sig := e.signal
		e.mu.Unlock()
		sig.Interrupt()
		e.log.Debug().Msg("interrupt requested")
		return
	case types.LoadCommand:
		e.mu.Lock()
		busy := e.pendingGen > 0
		if !busy {
			e.inbox.push(cmd)
		}
		e.mu.Unlock()
		if busy {
			e.log.Warn().Str("model", c.ModelID).Msg("load rejected: generation pending")
			e.emit(types.RejectedEvent{Data: "cannot switch models while a generation is in progress", ModelID: c.ModelID})
		}
		return
	case types.GenerateCommand:
		e.mu.Lock()
		e.pendingGen++
		e.inbox.push(cmd)
		e.mu.Unlock()
		return
	}
	e.inbox.push(cmd)
}

// Run processes commands until ctx is done, then disposes the cache and
// closes the event channel. It must be called once.
func (e *Executor) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("executor already running")
	}
	e.running = true
	e.mu.Unlock()

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		e.pump(ctx)
	}()

	for {
		cmd, ok := e.inbox.pop(ctx)
		if !ok {
			break
		}
		e.handle(ctx, cmd)
	}

	e.inbox.close()
	e.outbox.close()
	<-pumpDone
	close(e.events)
	if err := e.cfg.Cache.Close(); err != nil {
		e.log.Warn().Err(err).Msg("close cache")
	}
	return ctx.Err()
}

func (e *Executor) pump(ctx context.Context) {
	for {
		ev, ok := e.outbox.pop(ctx)
		if !ok {
			return
		}
		select {
		case e.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Executor) emit(ev types.Event) {
	eventsTotal.WithLabelValues(ev.EventStatus()).Inc()
	e.outbox.push(ev)
}

func (e *Executor) handle(ctx context.Context, cmd types.Command) {
	switch c := cmd.(type) {
	case types.CheckCommand:
		e.check(ctx)
	case types.LoadCommand:
		e.load(ctx, c)
	case types.GenerateCommand:
		e.generate(ctx, c)
	case types.ResetCommand:
		e.mu.Lock()
		e.signal.Reset()
		e.mu.Unlock()
	default:
		e.log.Error().Str("type", cmd.CommandType()).Msg("unhandled command")
	}
}

func (e *Executor) check(ctx context.Context) {
	err := e.cfg.Engine.Check(ctx)
	if err == nil {
		return
	}
	if engine.IsCapabilityUnavailable(err) {
		e.log.Error().Err(err).Msg("execution capability unavailable")
		e.emit(types.ErrorEvent{Data: err.Error()})
		return
	}
	e.log.Error().Err(err).Msg("capability check failed")
	e.emit(types.ErrorEvent{Data: fmt.Sprintf("capability check failed: %v", err)})
}

func unsupported(modelID string) types.UnsupportedModelEvent {
	return types.UnsupportedModelEvent{Data: fmt.Sprintf("model %q is not supported", modelID), ModelID: modelID}
}

func (e *Executor) load(ctx context.Context, c types.LoadCommand) {
	desc, ok := e.cfg.Catalog.Lookup(c.ModelID)
	if !ok {
		e.log.Warn().Str("model", c.ModelID).Msg("load of unknown model")
		e.emit(unsupported(c.ModelID))
		return
	}
	if !e.cfg.Cache.Supported(desc.ID) {
		e.log.Warn().Str("model", desc.ID).Msg("load of model without execution config")
		e.emit(unsupported(c.ModelID))
		return
	}
	e.emit(types.LoadingEvent{Data: loadingMessage})
	start := time.Now()
	_, _, err := e.cfg.Cache.GetOrLoad(ctx, desc, e.emit)
	switch {
	case engine.IsUnsupportedModel(err):
		e.emit(unsupported(c.ModelID))
	case err != nil:
		e.log.Error().Err(err).Str("model", desc.ID).Msg("load failed")
		e.emit(types.ErrorEvent{Data: err.Error()})
	default:
		loadDuration.Observe(time.Since(start).Seconds())
		e.log.Info().Str("model", desc.ID).Dur("took", time.Since(start)).Msg("model ready")
		e.emit(types.ReadyEvent{})
	}
}

// generate runs one generation. The pending count drops before the
// terminal event is published so a load sent in reaction to it is accepted.
func (e *Executor) generate(ctx context.Context, c types.GenerateCommand) {
	sig := engine.NewStoppingSignal()
	e.mu.Lock()
	e.signal = sig
	e.mu.Unlock()

	final := e.runGeneration(ctx, c, sig)

	e.mu.Lock()
	e.pendingGen--
	e.mu.Unlock()
	e.emit(final)
}

func (e *Executor) runGeneration(ctx context.Context, c types.GenerateCommand, sig *engine.StoppingSignal) types.Event {
	log := e.log.With().Str("run_id", ulid.Make().String()).Str("model", c.ModelID).Logger()

	desc, ok := e.cfg.Catalog.Lookup(c.ModelID)
	if !ok {
		return unsupported(c.ModelID)
	}
	// A load here is part of the run; only its download progress is shown.
	tok, mdl, err := e.cfg.Cache.GetOrLoad(ctx, desc, func(ev types.Event) {
		if _, ok := ev.(types.LoadingEvent); ok {
			return
		}
		e.emit(ev)
	})
	if err != nil {
		if engine.IsUnsupportedModel(err) {
			return unsupported(c.ModelID)
		}
		log.Error().Err(err).Msg("load before generate failed")
		return types.ErrorEvent{Data: err.Error()}
	}

	prompt, err := tok.ApplyChatTemplate(c.Data)
	if err != nil {
		return types.ErrorEvent{Data: fmt.Sprintf("apply chat template: %v", err)}
	}
	promptTokens, err := tok.CountTokens(prompt)
	if err != nil {
		return types.ErrorEvent{Data: fmt.Sprintf("tokenize prompt: %v", err)}
	}
	maxNew := e.cfg.MaxNewTokens
	if desc.ContextSize > 0 {
		remaining := desc.ContextSize - promptTokens
		if remaining <= 0 {
			return types.ErrorEvent{Data: fmt.Sprintf("conversation of %d tokens exceeds the %d token context window", promptTokens, desc.ContextSize)}
		}
		maxNew = min(maxNew, remaining)
	}

	log.Info().Int("prompt_tokens", promptTokens).Int("max_new_tokens", maxNew).Int("messages", len(c.Data)).Msg("generation start")
	e.emit(types.StartEvent{})

	st := stream.New(promptTokens, sig, func(u stream.Update) {
		e.emit(types.UpdateEvent{Output: u.Delta, TPS: u.TPS, NumTokens: u.NumTokens, ContextTokens: u.ContextTokens})
	})
	opts := engine.GenerateOptions{
		MaxNewTokens:  maxNew,
		Temperature:   e.cfg.Temperature,
		TopP:          e.cfg.TopP,
		TopK:          e.cfg.TopK,
		Seed:          e.cfg.Seed,
		RepeatPenalty: e.cfg.RepeatPenalty,
		StopWords:     engine.ChatMLStopWords,
		Stop:          sig,
	}
	err = mdl.Generate(ctx, prompt, opts, st.Put)
	st.End()
	generatedTokensTotal.Add(float64(st.NumTokens()))

	if err != nil && !sig.Interrupted() {
		gerr := engine.ErrGenerationFailure(err)
		generationsTotal.WithLabelValues("error").Inc()
		log.Error().Err(gerr).Int("tokens", st.NumTokens()).Msg("generation failed")
		return types.ErrorEvent{Data: gerr.Error()}
	}
	outcome := "completed"
	if sig.Interrupted() {
		outcome = "interrupted"
	}
	generationsTotal.WithLabelValues(outcome).Inc()
	log.Info().Str("outcome", outcome).Int("tokens", st.NumTokens()).Float64("tps", st.TPS()).Msg("generation end")
	return types.CompleteEvent{Output: st.Text()}
}
