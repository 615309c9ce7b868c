package app

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type speechFunc func(ctx context.Context, audio []byte, src, dst string) (core.SpeechTranslation, error)

func (f speechFunc) Name() string { return "fake-speech" }
func (f speechFunc) RecognizeAndTranslate(ctx context.Context, audio []byte, src, dst string) (core.SpeechTranslation, error) {
	return f(ctx, audio, src, dst)
}

type refinerFunc func(ctx context.Context, req core.TranslationRequest) (string, error)

func (f refinerFunc) Name() string { return "fake-refiner" }
func (f refinerFunc) Translate(ctx context.Context, req core.TranslationRequest) (string, error) {
	return f(ctx, req)
}

var clip = base64.StdEncoding.EncodeToString([]byte("clip"))

type pipelineFixture struct {
	pipeline *Pipeline
	alice    *fakeConn
	bob      *fakeConn
}

func newPipelineFixture(t *testing.T, speech core.SpeechTranslator, refiner core.Translator, cfg PipelineConfig) *pipelineFixture {
	t.Helper()
	reg := NewRegistry()
	alice, bob := newFakeConn("a1", "alice"), newFakeConn("b1", "bob")
	admit(t, reg, alice, bob)
	p := NewPipeline(NewDispatcher(reg, SimplePolicy{}), speech, refiner, cfg)
	t.Cleanup(p.Close)
	return &pipelineFixture{pipeline: p, alice: alice, bob: bob}
}

func (f *pipelineFixture) submit(to domain.Identity, lang domain.Language, raw string) {
	f.pipeline.HandleAudioJob(f.alice, domain.AudioJob{Target: to, RawAudio: raw, Language: lang})
}

func TestPipelineRefinesLanguageA(t *testing.T) {
	var gotSrc, gotDst string
	speech := speechFunc(func(ctx context.Context, audio []byte, src, dst string) (core.SpeechTranslation, error) {
		assert.Equal(t, []byte("clip"), audio)
		gotSrc, gotDst = src, dst
		return core.SpeechTranslation{RecognizedText: "hello", TranslatedText: "hallo"}, nil
	})
	var refineReq core.TranslationRequest
	refiner := refinerFunc(func(ctx context.Context, req core.TranslationRequest) (string, error) {
		refineReq = req
		return "hi", nil
	})
	f := newPipelineFixture(t, speech, refiner, PipelineConfig{})

	f.submit("bob", domain.LanguageA, clip)
	f.pipeline.Wait()

	assert.Equal(t, "my-MM", gotSrc)
	assert.Equal(t, "en", gotDst)
	assert.Equal(t, "hallo", refineReq.Text)
	assert.Equal(t, "hello", refineReq.Context)

	ev := f.bob.events(t)
	require.Len(t, ev, 1)
	assert.Equal(t, map[string]any{"type": "sttResult", "text": "hello", "translated": "hi", "from": "alice", "to": "bob"}, ev[0])
	assert.Empty(t, f.alice.events(t))
}

func TestPipelineLanguageBSkipsRefiner(t *testing.T) {
	speech := speechFunc(func(ctx context.Context, audio []byte, src, dst string) (core.SpeechTranslation, error) {
		assert.Equal(t, "en-US", src)
		assert.Equal(t, "my", dst)
		return core.SpeechTranslation{RecognizedText: "hello", TranslatedText: "မင်္ဂလာပါ"}, nil
	})
	refiner := refinerFunc(func(ctx context.Context, req core.TranslationRequest) (string, error) {
		t.Error("refiner must not be called for LanguageB")
		return "", nil
	})
	f := newPipelineFixture(t, speech, refiner, PipelineConfig{})

	f.submit("bob", domain.LanguageB, clip)
	f.pipeline.Wait()

	ev := f.bob.events(t)
	require.Len(t, ev, 1)
	assert.Equal(t, "မင်္ဂလာပါ", ev[0]["translated"])
}

func TestPipelineNoSpeech(t *testing.T) {
	for name, speech := range map[string]speechFunc{
		"empty text": func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
			return core.SpeechTranslation{}, nil
		},
		"provider reports": func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
			return core.SpeechTranslation{}, &domain.ProviderError{Provider: "x", Stage: domain.StageRecognize, Err: domain.ErrNoSpeech}
		},
	} {
		t.Run(name, func(t *testing.T) {
			f := newPipelineFixture(t, speech, nil, PipelineConfig{})
			f.submit("bob", domain.LanguageA, clip)
			f.pipeline.Wait()

			assert.Empty(t, f.bob.events(t))
			ev := f.alice.events(t)
			require.Len(t, ev, 1)
			assert.Equal(t, map[string]any{"type": "sttError", "message": "Speech could not be recognized"}, ev[0])
		})
	}
}

func TestPipelineDecodeError(t *testing.T) {
	called := false
	speech := speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		called = true
		return core.SpeechTranslation{}, nil
	})
	f := newPipelineFixture(t, speech, nil, PipelineConfig{})
	f.submit("bob", domain.LanguageB, "%%%")
	f.pipeline.Wait()

	assert.False(t, called)
	ev := f.alice.events(t)
	require.Len(t, ev, 1)
	assert.Equal(t, "Audio could not be decoded", ev[0]["message"])
	assert.Empty(t, f.bob.events(t))
}

func TestPipelineRecoversPanics(t *testing.T) {
	speech := speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		panic("boom")
	})
	f := newPipelineFixture(t, speech, nil, PipelineConfig{})
	before := liveBuffers.Load()
	f.submit("bob", domain.LanguageB, clip)
	f.pipeline.Wait()

	ev := f.alice.events(t)
	require.Len(t, ev, 1)
	assert.Contains(t, ev[0]["message"], "provider panic: boom")
	assert.Equal(t, before, liveBuffers.Load())
}

func TestPipelineTimeoutReleasesResources(t *testing.T) {
	unblock := make(chan struct{})
	speech := speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		<-unblock
		return core.SpeechTranslation{RecognizedText: "late", TranslatedText: "late"}, nil
	})
	f := newPipelineFixture(t, speech, nil, PipelineConfig{ProviderTimeout: 20 * time.Millisecond, MaxConcurrent: 1})
	before := liveBuffers.Load()

	f.submit("bob", domain.LanguageB, clip)
	f.pipeline.Wait()

	ev := f.alice.events(t)
	require.Len(t, ev, 1)
	assert.Contains(t, ev[0]["message"], "deadline exceeded")
	assert.Empty(t, f.bob.events(t))

	// The hung call still owns its slot and its buffer.
	require.False(t, f.pipeline.sem.TryAcquire(1))
	assert.Equal(t, before+1, liveBuffers.Load())

	close(unblock)
	assert.Eventually(t, func() bool {
		if !f.pipeline.sem.TryAcquire(1) {
			return false
		}
		f.pipeline.sem.Release(1)
		return true
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return liveBuffers.Load() == before }, time.Second, 5*time.Millisecond)
}

func TestPipelineHungCallBoundsConcurrency(t *testing.T) {
	unblock := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	speech := speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-unblock
		return core.SpeechTranslation{RecognizedText: "hello", TranslatedText: "hi"}, nil
	})
	f := newPipelineFixture(t, speech, nil, PipelineConfig{ProviderTimeout: 20 * time.Millisecond, MaxConcurrent: 1})

	f.submit("bob", domain.LanguageB, clip)
	f.pipeline.Wait()
	f.submit("bob", domain.LanguageB, clip)
	f.pipeline.Wait()

	// The second job gave up waiting for the slot instead of calling the provider.
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	ev := f.alice.events(t)
	require.Len(t, ev, 2)
	assert.Contains(t, ev[1]["message"], "waiting for a free slot")

	close(unblock)
	assert.Eventually(t, func() bool {
		if !f.pipeline.sem.TryAcquire(1) {
			return false
		}
		f.pipeline.sem.Release(1)
		return true
	}, time.Second, 5*time.Millisecond)
}

func TestPipelineDecodesAfterSlot(t *testing.T) {
	f := newPipelineFixture(t, speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		return core.SpeechTranslation{}, errors.New("not called")
	}), nil, PipelineConfig{ProviderTimeout: 20 * time.Millisecond, MaxConcurrent: 1})
	require.True(t, f.pipeline.sem.TryAcquire(1))
	before := liveBuffers.Load()

	f.submit("bob", domain.LanguageB, clip)
	f.pipeline.Wait()
	f.pipeline.sem.Release(1)

	assert.Equal(t, before, liveBuffers.Load())
	ev := f.alice.events(t)
	require.Len(t, ev, 1)
	assert.Contains(t, ev[0]["message"], "waiting for a free slot")
}

func TestPipelineRefinerFailureSendsNoPartialResult(t *testing.T) {
	speech := speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		return core.SpeechTranslation{RecognizedText: "hello", TranslatedText: "hallo"}, nil
	})
	refiner := refinerFunc(func(context.Context, core.TranslationRequest) (string, error) {
		return "", errors.New("quota exceeded")
	})
	f := newPipelineFixture(t, speech, refiner, PipelineConfig{})
	f.submit("bob", domain.LanguageA, clip)
	f.pipeline.Wait()

	assert.Empty(t, f.bob.events(t))
	ev := f.alice.events(t)
	require.Len(t, ev, 1)
	assert.Contains(t, ev[0]["message"], "quota exceeded")
}

func TestPipelineAbsentTarget(t *testing.T) {
	speech := speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		return core.SpeechTranslation{RecognizedText: "hello", TranslatedText: "hi"}, nil
	})
	f := newPipelineFixture(t, speech, nil, PipelineConfig{})
	f.submit("carol", domain.LanguageB, clip)
	f.pipeline.Wait()

	assert.Empty(t, f.alice.events(t))
	assert.Empty(t, f.bob.events(t))
}

func TestPipelineRateLimited(t *testing.T) {
	speech := speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		return core.SpeechTranslation{RecognizedText: "hello", TranslatedText: "hi"}, nil
	})
	f := newPipelineFixture(t, speech, nil, PipelineConfig{Limiter: NewRateLimiter(1, time.Minute)})
	f.submit("bob", domain.LanguageB, clip)
	f.submit("bob", domain.LanguageB, clip)
	f.pipeline.Wait()

	assert.Len(t, f.bob.events(t), 1)
	ev := f.alice.events(t)
	require.Len(t, ev, 1)
	assert.Equal(t, domain.ErrRateLimited.Error(), ev[0]["message"])
}

func TestPipelineJobsRunIndependently(t *testing.T) {
	slowStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	speech := speechFunc(func(ctx context.Context, audio []byte, src, dst string) (core.SpeechTranslation, error) {
		if src == "my-MM" {
			once.Do(func() { close(slowStarted) })
			<-release
			return core.SpeechTranslation{RecognizedText: "slow", TranslatedText: "slow"}, nil
		}
		return core.SpeechTranslation{RecognizedText: "fast", TranslatedText: "fast"}, nil
	})
	f := newPipelineFixture(t, speech, nil, PipelineConfig{})

	f.submit("bob", domain.LanguageA, clip)
	<-slowStarted
	f.submit("bob", domain.LanguageB, clip)

	assert.Eventually(t, func() bool { return len(f.bob.events(t)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "fast", f.bob.events(t)[0]["text"])

	close(release)
	f.pipeline.Wait()
	assert.Len(t, f.bob.events(t), 2)
}

func TestPipelineRejectsAfterClose(t *testing.T) {
	speech := speechFunc(func(context.Context, []byte, string, string) (core.SpeechTranslation, error) {
		return core.SpeechTranslation{RecognizedText: "hello", TranslatedText: "hi"}, nil
	})
	f := newPipelineFixture(t, speech, nil, PipelineConfig{})
	f.pipeline.Close()

	f.submit("bob", domain.LanguageB, clip)
	ev := f.alice.events(t)
	require.Len(t, ev, 1)
	assert.Equal(t, "server is shutting down", ev[0]["message"])
}
