package streaming

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	"octane/relay/pkg/relay"
	"octane/relay/pkg/store"
	"octane/relay/pkg/tokens"
)

// state is the transform's lifecycle position.
type state int

const (
	// stateNotStarted: no target events emitted yet; init is pending
	// until the upstream id and model are known.
	stateNotStarted state = iota

	// stateHeadersSent: the target's framing events are out.
	stateHeadersSent

	// stateContentActive: at least one content delta has been emitted.
	stateContentActive

	// stateTerminated: completion events are out; nothing more may be
	// written.
	stateTerminated
)

// CompletionFunc receives the final StreamContext exactly once per call,
// whether the stream ended cleanly or was aborted.
type CompletionFunc func(*StreamContext)

// Transformer drives one streaming call's translation. It is single-use
// and not safe for concurrent use; the gateway creates one per request.
type Transformer struct {
	source     store.ChannelType
	target     relay.Format
	onComplete CompletionFunc
	logger     *slog.Logger

	sctx           *StreamContext
	state          state
	emit           emitter
	completionSent bool
	callbackFired  bool

	// pending holds deltas that arrived before the upstream envelope
	// identified itself; they are flushed right after init.
	pending []string
}

// NewTransformer builds a transformer for one (source, target) pair.
// onComplete may be nil.
func NewTransformer(source store.ChannelType, target relay.Format, onComplete CompletionFunc) *Transformer {
	return &Transformer{
		source:     source,
		target:     target,
		onComplete: onComplete,
		logger:     slog.Default().With("component", "streaming"),
		sctx:       &StreamContext{},
		emit:       emitterFor(target),
	}
}

// flusher is the subset of http.Flusher the transformer needs; satisfied
// by http.ResponseWriter and absent on test buffers.
type flusher interface {
	Flush()
}

// Pipe consumes upstream SSE frames and writes translated frames to w
// until the source terminates, the upstream errors, or ctx is cancelled.
// The completion callback fires exactly once in every case.
func (t *Transformer) Pipe(ctx context.Context, upstream io.Reader, w io.Writer) error {
	defer t.fireCallback()

	if t.source == store.ChannelTypeAnthropic && t.target == relay.FormatAnthropic {
		return t.passthrough(ctx, upstream, w)
	}

	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			// event:, id:, comments, and blank separators carry nothing
			// the extractors need; Anthropic events repeat the type in
			// the data payload.
			continue
		}

		if data == "[DONE]" {
			return t.finish(w)
		}

		f, err := extractFrame(t.source, []byte(data))
		if err != nil {
			t.logger.Warn("skipping malformed stream frame",
				"source", t.source,
				"error", err,
			)
			continue
		}
		if f == nil {
			continue
		}

		if err := t.apply(w, f); err != nil {
			return err
		}
		t.flush(w)

		if f.terminal {
			return t.finish(w)
		}
	}

	if err := scanner.Err(); err != nil {
		t.logger.Warn("upstream stream read failed", "error", err)
		return err
	}
	return t.finish(w)
}

// apply folds one extracted frame into the context and emits its
// translation.
func (t *Transformer) apply(w io.Writer, f *frame) error {
	if f.id != "" && t.sctx.ID == "" {
		t.sctx.ID = f.id
	}
	if f.model != "" && t.sctx.Model == "" {
		t.sctx.Model = f.model
	}
	if f.finishReason != "" {
		t.sctx.FinishReason = f.finishReason
	}
	if f.usage != nil {
		if f.usage.InputTokens > 0 {
			t.sctx.InputTokens = f.usage.InputTokens
		}
		if f.usage.OutputTokens > 0 {
			t.sctx.OutputTokens = f.usage.OutputTokens
			t.sctx.vendorOutput = true
		}
	}

	if f.delta == "" {
		return nil
	}

	t.sctx.Text += f.delta
	if !t.sctx.vendorOutput {
		t.sctx.OutputTokens += tokens.Estimate(f.delta)
	}

	if t.state == stateNotStarted {
		if !t.sctx.initialized() {
			// Cannot frame the target stream yet; hold the delta.
			t.pending = append(t.pending, f.delta)
			return nil
		}
		if err := t.emit.init(w, t.sctx); err != nil {
			return err
		}
		t.state = stateHeadersSent
	}

	for _, held := range t.pending {
		if err := t.emit.delta(w, t.sctx, held); err != nil {
			return err
		}
	}
	t.pending = nil

	if err := t.emit.delta(w, t.sctx, f.delta); err != nil {
		return err
	}
	t.state = stateContentActive
	return nil
}

// finish flushes the target's completion events exactly once. Completion
// is suppressed entirely when the stream never initialized: the target's
// terminal events must not precede its framing events.
func (t *Transformer) finish(w io.Writer) error {
	if t.completionSent {
		return nil
	}
	t.completionSent = true

	if t.state == stateNotStarted {
		if t.sctx.initialized() {
			if err := t.emit.init(w, t.sctx); err != nil {
				return err
			}
			t.state = stateHeadersSent
		} else {
			t.state = stateTerminated
			return nil
		}
	}

	err := t.emit.complete(w, t.sctx)
	t.state = stateTerminated
	t.flush(w)
	return err
}

// passthrough copies an Anthropic stream verbatim while running the same
// bookkeeping, so usage accounting works without re-encoding frames.
func (t *Transformer) passthrough(ctx context.Context, upstream io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
		if line == "" {
			t.flush(w)
		}

		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		f, err := extractFrame(store.ChannelTypeAnthropic, []byte(data))
		if err != nil || f == nil {
			continue
		}
		if f.id != "" && t.sctx.ID == "" {
			t.sctx.ID = f.id
		}
		if f.model != "" && t.sctx.Model == "" {
			t.sctx.Model = f.model
		}
		if f.finishReason != "" {
			t.sctx.FinishReason = f.finishReason
		}
		if f.usage != nil {
			if f.usage.InputTokens > 0 {
				t.sctx.InputTokens = f.usage.InputTokens
			}
			if f.usage.OutputTokens > 0 {
				t.sctx.OutputTokens = f.usage.OutputTokens
				t.sctx.vendorOutput = true
			}
		}
		if f.delta != "" {
			t.sctx.Text += f.delta
			if !t.sctx.vendorOutput {
				t.sctx.OutputTokens += tokens.Estimate(f.delta)
			}
		}
	}

	t.completionSent = true
	t.state = stateTerminated
	return scanner.Err()
}

func (t *Transformer) fireCallback() {
	if t.callbackFired || t.onComplete == nil {
		return
	}
	t.callbackFired = true
	t.onComplete(t.sctx)
}

func (t *Transformer) flush(w io.Writer) {
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
}
