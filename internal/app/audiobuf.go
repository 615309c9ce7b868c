package app

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dkeye/VoiceBridge/internal/domain"
)

// Buffers larger than this are not returned to the pool.
const maxPooledAudio = 4 << 20

var audioPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64<<10)
		return &b
	},
}

// liveBuffers counts decoded buffers not yet released.
var liveBuffers atomic.Int64

// audioBuffer is the per-job decoded audio. Release must be called once
// nothing reads it anymore.
type audioBuffer struct {
	p    *[]byte
	data []byte
}

// decodeAudio decodes a base64 clip, optionally prefixed by a data URL header.
func decodeAudio(raw string) (*audioBuffer, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return nil, &domain.DecodeError{Err: errors.New("empty audio")}
	}

	n := base64.StdEncoding.DecodedLen(len(s))
	bp := audioPool.Get().(*[]byte)
	if cap(*bp) < n {
		*bp = make([]byte, n)
	}
	buf := (*bp)[:n]
	m, err := base64.StdEncoding.Decode(buf, []byte(s))
	if err == nil && m == 0 {
		err = errors.New("empty audio")
	}
	if err != nil {
		*bp = (*bp)[:0]
		audioPool.Put(bp)
		return nil, &domain.DecodeError{Err: err}
	}
	liveBuffers.Add(1)
	return &audioBuffer{p: bp, data: buf[:m]}, nil
}

func (b *audioBuffer) Bytes() []byte { return b.data }

// Release wipes the buffer and returns it to the pool.
func (b *audioBuffer) Release() {
	if b.p == nil {
		return
	}
	clear(b.data)
	if cap(*b.p) <= maxPooledAudio {
		*b.p = (*b.p)[:0]
		audioPool.Put(b.p)
	}
	b.p, b.data = nil, nil
	liveBuffers.Add(-1)
}
