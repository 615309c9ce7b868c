package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const DefaultProviderTimeout = 30 * time.Second

type PipelineConfig struct {
	// ProviderTimeout bounds every single provider call.
	ProviderTimeout time.Duration
	// MaxConcurrent bounds jobs talking to providers at once; 0 is unbounded.
	MaxConcurrent int64
	Limiter       *RateLimiter
}

// Pipeline turns recorded utterances into transcript/translation pairs.
// Every job runs in its own goroutine; a slow or failing job never holds up
// another one or the caller.
type Pipeline struct {
	Dispatch *Dispatcher
	Speech   core.SpeechTranslator
	// Refiner is the optional secondary translator for LanguageA.
	Refiner core.Translator

	timeout time.Duration
	sem     *semaphore.Weighted
	limiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPipeline(d *Dispatcher, speech core.SpeechTranslator, refiner core.Translator, cfg PipelineConfig) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		Dispatch: d,
		Speech:   speech,
		Refiner:  refiner,
		timeout:  cfg.ProviderTimeout,
		limiter:  cfg.Limiter,
		ctx:      ctx,
		cancel:   cancel,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultProviderTimeout
	}
	if cfg.MaxConcurrent > 0 {
		p.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return p
}

// HandleAudioJob schedules job and returns immediately. The result goes to
// the target's connections; any failure goes to sender only.
func (p *Pipeline) HandleAudioJob(sender core.Connection, job domain.AudioJob) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.Source = sender.Identity()

	if !p.limiter.Allow(job.Source) {
		p.fail(sender, job, domain.ErrRateLimited)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.fail(sender, job, errors.New("server is shutting down"))
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.run(sender, job)
	}()
}

func (p *Pipeline) run(sender core.Connection, job domain.AudioJob) {
	logger := log.With().
		Str("module", "app.pipeline").
		Str("job", job.ID).
		Str("from", string(job.Source)).
		Str("to", string(job.Target)).
		Str("lang", string(job.Language)).
		Logger()

	result, err := p.process(p.ctx, job, &logger)
	if err != nil {
		logger.Warn().Err(err).Dur("elapsed", time.Since(job.CreatedAt)).Msg("audio job failed")
		p.fail(sender, job, err)
		return
	}

	res := p.Dispatch.SendTo(job.Target, "", sttResultEvent{Type: EventSTTResult, TranslationResult: result})
	logger.Info().Int("sent_to", res.SendTo).Dur("elapsed", time.Since(job.CreatedAt)).Msg("audio job delivered")
}

func (p *Pipeline) process(ctx context.Context, job domain.AudioJob, logger *zerolog.Logger) (domain.TranslationResult, error) {
	lease, err := p.acquire(ctx)
	if err != nil {
		return domain.TranslationResult{}, &domain.ProviderError{Provider: p.Speech.Name(), Stage: domain.StageRecognize, Err: err}
	}
	defer lease.done()

	buf, err := decodeAudio(job.RawAudio)
	if err != nil {
		return domain.TranslationResult{}, err
	}
	logger.Debug().Int("bytes", len(buf.Bytes())).Msg("decoded audio")

	lang := job.Language
	lease.hold()
	st, err := guarded(ctx, p.timeout, func(ctx context.Context) (core.SpeechTranslation, error) {
		return p.Speech.RecognizeAndTranslate(ctx, buf.Bytes(), lang.SourceTag(), lang.TargetTag())
	}, func() {
		// Runs once the provider returned, even after a timeout.
		buf.Release()
		lease.done()
	})
	if err != nil {
		return domain.TranslationResult{}, asProviderError(p.Speech.Name(), domain.StageRecognize, err)
	}
	if strings.TrimSpace(st.RecognizedText) == "" {
		return domain.TranslationResult{}, &domain.ProviderError{Provider: p.Speech.Name(), Stage: domain.StageRecognize, Err: domain.ErrNoSpeech}
	}

	translated := st.TranslatedText
	if lang.NeedsRefinement() && p.Refiner != nil {
		req := core.TranslationRequest{
			Text:       st.TranslatedText,
			Context:    st.RecognizedText,
			SourceTag:  lang.SourceTag(),
			TargetTag:  lang.TargetTag(),
			SourceName: lang.SourceName(),
			TargetName: lang.TargetName(),
		}
		lease.hold()
		translated, err = guarded(ctx, p.timeout, func(ctx context.Context) (string, error) {
			return p.Refiner.Translate(ctx, req)
		}, lease.done)
		if err != nil {
			return domain.TranslationResult{}, asProviderError(p.Refiner.Name(), domain.StageRefine, err)
		}
	}
	if strings.TrimSpace(translated) == "" {
		return domain.TranslationResult{}, &domain.ProviderError{Stage: domain.StageTranslate, Err: errors.New("empty translation")}
	}

	return domain.TranslationResult{
		RecognizedText: st.RecognizedText,
		TranslatedText: translated,
		Source:         job.Source,
		Target:         job.Target,
	}, nil
}

func (p *Pipeline) fail(sender core.Connection, job domain.AudioJob, err error) {
	if rerr := p.Dispatch.Reply(sender, sttErrorEvent{Type: EventSTTError, Message: domain.UserMessage(err)}); rerr != nil {
		log.Debug().Err(rerr).Str("module", "app.pipeline").Str("job", job.ID).Msg("could not report failure to sender")
	}
}

// Forget drops per-identity state kept for rate limiting.
func (p *Pipeline) Forget(id domain.Identity) { p.limiter.Forget(id) }

// Wait blocks until every scheduled job finished.
func (p *Pipeline) Wait() { p.wg.Wait() }

// Close cancels outstanding jobs and waits for them.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}

// acquire waits for a concurrency slot, no longer than one provider timeout.
func (p *Pipeline) acquire(ctx context.Context) (*jobLease, error) {
	lease := &jobLease{}
	lease.hold()
	if p.sem == nil {
		return lease, nil
	}
	wctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.sem.Acquire(wctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a free slot: %w", err)
	}
	lease.release = func() { p.sem.Release(1) }
	return lease, nil
}

// jobLease keeps a concurrency slot until the job and every provider call
// it started have returned. A call abandoned on timeout keeps the slot.
type jobLease struct {
	n       atomic.Int32
	release func()
}

func (l *jobLease) hold() { l.n.Add(1) }

func (l *jobLease) done() {
	if l.n.Add(-1) == 0 && l.release != nil {
		l.release()
	}
}

// guarded runs call under a timeout, converting panics into errors. after
// runs in the call's goroutine once call returned, whether or not guarded
// was still waiting for it.
func guarded[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error), after func()) (val T, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o.err = fmt.Errorf("provider panic: %v", r)
			}
			if after != nil {
				after()
			}
			done <- o
		}()
		o.val, o.err = call(ctx)
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		return val, ctx.Err()
	}
}

func asProviderError(provider, stage string, err error) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &domain.ProviderError{Provider: provider, Stage: stage, Err: err}
}
