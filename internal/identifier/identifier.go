// Package identifier turns provider-side model names into catalog model ids.
//
// An id is the trimmed raw name, prefixed with "dialoqbase_eb_" for embedding
// models, followed by "_dialoqbase_<unix-millis>_<token>". The token is the
// randomness part of a monotonic ULID, so ids minted by one process in the
// same millisecond still differ.
package identifier

import (
	"crypto/rand"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/oklog/ulid/v2"
)

const (
	EmbeddingPrefix = "dialoqbase_eb_"
	Separator       = "_dialoqbase_"

	// ULID text is 10 time characters followed by 16 of randomness.
	tokenOffset = 10
)

// Generator mints namespaced ids. The zero value is not usable; use New.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithEntropy replaces the random source behind the monotonic reader.
func WithEntropy(r io.Reader) Option {
	return func(g *Generator) { g.entropy = ulid.Monotonic(r, 0) }
}

func New(opts ...Option) *Generator {
	g := &Generator{
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Namespace returns the catalog model id for raw.
func (g *Generator) Namespace(raw string, kind domain.ModelKind) string {
	base := strings.TrimSpace(raw)
	if kind == domain.ModelKindEmbedding {
		base = EmbeddingPrefix + base
	}

	ms, token := g.next()

	var b strings.Builder
	b.Grow(len(base) + len(Separator) + 13 + 1 + 16)
	b.WriteString(base)
	b.WriteString(Separator)
	b.WriteString(strconv.FormatUint(ms, 10))
	b.WriteByte('_')
	b.WriteString(token)
	return b.String()
}

func (g *Generator) next() (uint64, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(g.now())
	id, err := ulid.New(ms, g.entropy)
	if err != nil {
		// Monotonic overflow within one millisecond; a fresh reader resets it.
		g.entropy = ulid.Monotonic(rand.Reader, 0)
		id = ulid.MustNew(ms, g.entropy)
	}

	return ms, strings.ToLower(id.String()[tokenOffset:])
}

var defaultGenerator = New()

// Namespace mints an id with the process wide generator.
func Namespace(raw string, kind domain.ModelKind) string {
	return defaultGenerator.Namespace(raw, kind)
}

// NaturalKey returns the uniqueness key of a raw provider-side name.
func NaturalKey(raw string) string {
	return strings.TrimSpace(raw)
}
