package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"chatd/internal/prefs"
	"chatd/internal/progress"
	"chatd/internal/registry"
	"chatd/pkg/types"
)

// Sender delivers commands to the executor. Send must not block and must
// not call back into the Orchestrator.
type Sender interface {
	Send(types.Command)
}

// Options configures an Orchestrator. Sender and Catalog are required.
type Options struct {
	Sender  Sender
	Catalog *registry.Catalog
	// Prefs defaults to an in-memory store.
	Prefs  prefs.Store
	Logger zerolog.Logger
	// OnChange receives a snapshot after every state change.
	OnChange func(Snapshot)
	// OnSelectModel asks the front-end to present model selection.
	OnSelectModel func(reason string)
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

// Orchestrator owns one chat session.
type Orchestrator struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	status   Status
	running  bool
	messages []types.Message
	queued   *string
	metrics  Metrics
	errText  string
	loadMsg  string
	model    string
	loaded   string
	progress progress.Tracker

	// checking is set until the first event after check arrives.
	checking bool
	// awaitingStart is set between issuing generate and its start event.
	awaitingStart bool
}

func New(opts Options) *Orchestrator {
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemoryStore()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	return &Orchestrator{
		opts: opts,
		log:  opts.Logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Init restores the persisted model selection and checks the execution
// capability. A stored selection missing from the catalog is cleared.
func (o *Orchestrator) Init(ctx context.Context) error {
	sel, err := o.opts.Prefs.Get(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("read model preference")
		sel = ""
	}
	if sel != "" {
		if _, ok := o.opts.Catalog.Lookup(sel); !ok {
			o.log.Info().Str("model", sel).Msg("stored model no longer in catalog")
			if err := o.opts.Prefs.Clear(ctx); err != nil {
				o.log.Warn().Err(err).Msg("clear model preference")
			}
			sel = ""
		}
	}
	o.update(func() {
		o.model = sel
		o.checking = true
		o.opts.Sender.Send(types.CheckCommand{})
	})
	return nil
}

// Snapshot returns a copy of the session.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:         o.status,
		IsRunning:      o.running,
		Messages:       append([]types.Message(nil), o.messages...),
		Metrics:        o.metrics,
		Error:          o.errText,
		LoadingMessage: o.loadMsg,
		Progress:       o.progress.Items(),
		Model:          o.model,
		LoadedModel:    o.loaded,
	}
	if o.queued != nil {
		q := *o.queued
		s.QueuedMessage = &q
	}
	if d, ok := o.opts.Catalog.Lookup(o.model); ok {
		s.ContextSize = d.ContextSize
	}
	return s
}

// update runs fn under the lock and then reports the new snapshot.
func (o *Orchestrator) update(fn func()) {
	o.mu.Lock()
	fn()
	snap := o.snapshotLocked()
	o.mu.Unlock()
	if o.opts.OnChange != nil {
		o.opts.OnChange(snap)
	}
}

// historyChanged issues generate when the conversation ends with a user
// message and the model is ready for it. It reports whether it did.
func (o *Orchestrator) historyChanged() bool {
	if !o.running || o.status != StatusReady || o.awaitingStart {
		return false
	}
	if n := len(o.messages); n == 0 || o.messages[n-1].Role != types.RoleUser {
		return false
	}
	o.awaitingStart = true
	o.metrics = Metrics{}
	o.opts.Sender.Send(types.GenerateCommand{
		Data:    append([]types.Message(nil), o.messages...),
		ModelID: o.model,
	})
	return true
}

// generate marks the session running for as long as a generate is in
// flight.
func (o *Orchestrator) generate() {
	o.running = true
	if !o.historyChanged() {
		o.running = false
	}
}

// Submit appends a user message and either generates a reply or queues
// it until the selected model is loaded.
func (o *Orchestrator) Submit(text string) error {
	var err error
	selectModel := false
	o.update(func() {
		switch {
		case o.status == StatusError:
			err = ErrUnavailable
		case o.running:
			err = ErrBusy
		case o.model == "":
			err, selectModel = ErrNoModel, true
		case o.status == StatusLoading && o.queued != nil:
			err = ErrQueued
		}
		if err != nil {
			return
		}
		o.errText = ""
		o.messages = append(o.messages, types.Message{Role: types.RoleUser, Content: text})
		if o.status != StatusReady {
			q := text
			o.queued = &q
			if o.status != StatusLoading {
				o.status = StatusLoading
				o.opts.Sender.Send(types.LoadCommand{ModelID: o.model})
			}
			return
		}
		o.generate()
	})
	if selectModel && o.opts.OnSelectModel != nil {
		o.opts.OnSelectModel(ErrNoModel.Error())
	}
	return err
}

// Interrupt asks the executor to stop the current generation. The
// session stays running until the complete event arrives.
func (o *Orchestrator) Interrupt() {
	o.opts.Sender.Send(types.InterruptCommand{})
}

// EditMessage replaces message index, drops every later message and, if
// the model is ready and the edited message is the user's, regenerates.
func (o *Orchestrator) EditMessage(index int, content string) error {
	var err error
	o.update(func() {
		switch {
		case o.status == StatusError:
			err = ErrUnavailable
			return
		case o.running:
			err = ErrBusy
			return
		case o.queued != nil:
			err = ErrQueued
			return
		case index < 0 || index >= len(o.messages):
			err = ErrIndex
			return
		}
		o.messages[index].Content = content
		o.messages = o.messages[:index+1]
		if o.status == StatusReady {
			o.generate()
		}
	})
	return err
}

// SwitchModel selects and loads another model.
func (o *Orchestrator) SwitchModel(url string) error {
	if _, ok := o.opts.Catalog.Lookup(url); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, url)
	}
	var err error
	o.update(func() {
		switch {
		case o.status == StatusError:
			err = ErrUnavailable
			return
		case o.running || o.status == StatusLoading:
			err = ErrBusy
			return
		}
		o.status = StatusLoading
		o.errText = ""
		o.queued = nil
		o.progress.Clear()
		o.model = url
		if perr := o.opts.Prefs.Set(context.Background(), url); perr != nil {
			o.log.Warn().Err(perr).Msg("persist model preference")
		}
		o.opts.Sender.Send(types.LoadCommand{ModelID: url})
	})
	return err
}

// Reset starts a new conversation.
func (o *Orchestrator) Reset() error {
	var err error
	o.update(func() {
		if o.running {
			err = ErrBusy
			return
		}
		o.messages = nil
		o.queued = nil
		o.metrics = Metrics{}
		o.errText = ""
		o.opts.Sender.Send(types.ResetCommand{})
	})
	return err
}

// CopyLast copies the latest assistant message. Clipboard failures are
// logged and returned; they never change the session.
func (o *Orchestrator) CopyLast() error {
	o.mu.Lock()
	text, found := "", false
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].Role == types.RoleAssistant {
			text, found = o.messages[i].Content, true
			break
		}
	}
	o.mu.Unlock()
	if !found {
		return ErrNothingToCopy
	}
	if err := o.opts.Clipboard(text); err != nil {
		o.log.Warn().Err(err).Msg("copy to clipboard")
		return err
	}
	return nil
}

// HandleEvent folds one executor event into the session.
func (o *Orchestrator) HandleEvent(ev types.Event) {
	var selectReason string
	o.update(func() {
		if o.checking {
			o.checking = false
			if e, ok := ev.(types.ErrorEvent); ok {
				o.log.Error().Str("error", e.Data).Msg("execution capability unavailable")
				o.status = StatusError
				o.errText = e.Data
				return
			}
		}
		switch e := ev.(type) {
		case types.LoadingEvent:
			o.status = StatusLoading
			o.loadMsg = e.Data
		case types.InitiateEvent, types.ProgressEvent, types.DoneEvent:
			o.progress.Apply(ev)
		case types.ReadyEvent:
			o.status = StatusReady
			o.loaded = o.model
			o.loadMsg = ""
			if o.queued != nil {
				o.queued = nil
				o.generate()
			}
		case types.StartEvent:
			o.awaitingStart = false
			o.running = true
			o.metrics = Metrics{}
			o.messages = append(o.messages, types.Message{Role: types.RoleAssistant})
		case types.UpdateEvent:
			if n := len(o.messages); n > 0 && o.messages[n-1].Role == types.RoleAssistant {
				o.messages[n-1].Content += e.Output
			}
			o.metrics = Metrics{TPS: e.TPS, NumTokens: e.NumTokens, ContextTokens: e.ContextTokens}
		case types.CompleteEvent:
			o.running = false
			o.awaitingStart = false
		case types.ErrorEvent:
			o.log.Error().Str("error", e.Data).Msg("executor error")
			o.status = StatusIdle
			o.errText = e.Data
			o.running = false
			o.awaitingStart = false
			o.loadMsg = ""
		case types.UnsupportedModelEvent:
			o.log.Warn().Str("model", e.ModelID).Msg("model unsupported")
			o.forgetPreference(e.ModelID)
			o.status = StatusIdle
			o.running = false
			o.awaitingStart = false
			o.queued = nil
			o.loadMsg = ""
			o.progress.Clear()
			o.errText = e.Data
			if o.model == e.ModelID {
				o.model = ""
			}
			if o.loaded == e.ModelID {
				o.loaded = ""
			}
			selectReason = e.Data
		case types.RejectedEvent:
			o.errText = e.Data
			o.loadMsg = ""
			if o.loaded != "" {
				o.model = o.loaded
				o.status = StatusReady
			} else {
				o.status = StatusIdle
			}
		}
	})
	if selectReason != "" && o.opts.OnSelectModel != nil {
		o.opts.OnSelectModel(selectReason)
	}
}

// forgetPreference clears the stored selection if it is url.
func (o *Orchestrator) forgetPreference(url string) {
	ctx := context.Background()
	stored, err := o.opts.Prefs.Get(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("read model preference")
		return
	}
	if stored != url {
		return
	}
	if err := o.opts.Prefs.Clear(ctx); err != nil {
		o.log.Warn().Err(err).Msg("clear model preference")
	}
}

// Run handles events until the channel closes or ctx is done.
func (o *Orchestrator) Run(ctx context.Context, events <-chan types.Event) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			o.HandleEvent(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
