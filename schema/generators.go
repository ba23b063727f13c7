package schema

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/Konsultn-Engineering/querykit/param"
)

// IDGenerator produces key values for inserts, ready to pass to
// Statement.Values or Statement.Set.
type IDGenerator interface {
	Generate() (param.Value, error)
	Type() string
}

// UUIDGenerator generates random (version 4) UUIDs, bound as uuid values.
type UUIDGenerator struct{}

func (g UUIDGenerator) Generate() (param.Value, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return param.Null(), fmt.Errorf("failed to generate UUID: %w", err)
	}
	return param.Generic(id), nil
}

func (g UUIDGenerator) Type() string {
	return "uuid"
}

// ULIDGenerator generates monotonic ULIDs, bound as their 26 character text
// form.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULIDGenerator) Generate() (param.Value, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return param.Null(), fmt.Errorf("failed to generate ULID: %w", err)
	}
	return param.Text(id.String()), nil
}

func (g *ULIDGenerator) Type() string {
	return "ulid"
}

// SnowflakeGenerator generates 63 bit time-ordered integers:
// 41 bits of milliseconds since 2023-01-01 UTC, 10 bits of machine ID and a
// 12 bit sequence.
type SnowflakeGenerator struct {
	mu        sync.Mutex
	machineID uint64
	sequence  uint64
	lastTime  uint64
	epoch     uint64
	now       func() time.Time
}

func NewSnowflakeGenerator(machineID uint64) *SnowflakeGenerator {
	return &SnowflakeGenerator{
		machineID: machineID & 0x3FF,
		epoch:     uint64(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()),
		now:       time.Now,
	}
}

func (g *SnowflakeGenerator) Generate() (param.Value, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := uint64(g.now().UnixMilli())
	if now < g.lastTime {
		return param.Null(), fmt.Errorf("clock moved backwards by %dms", g.lastTime-now)
	}
	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & 0xFFF
		if g.sequence == 0 {
			// sequence exhausted for this millisecond
			for now <= g.lastTime {
				now = uint64(g.now().UnixMilli())
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	id := ((now - g.epoch) << 22) | (g.machineID << 12) | g.sequence
	return param.Int64(int64(id)), nil
}

func (g *SnowflakeGenerator) Type() string {
	return "snowflake"
}

const nanoIDAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NanoIDGenerator generates random text IDs over an alphabet.
type NanoIDGenerator struct {
	size     int
	alphabet string
}

// NewNanoIDGenerator uses size 21 and the URL-safe alphabet for zero
// arguments.
func NewNanoIDGenerator(size int, alphabet string) *NanoIDGenerator {
	if size <= 0 {
		size = 21
	}
	if alphabet == "" {
		alphabet = nanoIDAlphabet
	}
	return &NanoIDGenerator{size: size, alphabet: alphabet}
}

func (g *NanoIDGenerator) Generate() (param.Value, error) {
	buf := make([]byte, g.size)
	if _, err := rand.Read(buf); err != nil {
		return param.Null(), fmt.Errorf("failed to generate random bytes: %w", err)
	}
	id := make([]byte, g.size)
	for i, b := range buf {
		id[i] = g.alphabet[int(b)%len(g.alphabet)]
	}
	return param.Text(string(id)), nil
}

func (g *NanoIDGenerator) Type() string {
	return "nanoid"
}

// GeneratorRegistry looks generators up by name.
type GeneratorRegistry struct {
	mu         sync.RWMutex
	generators map[string]IDGenerator
}

var defaultRegistry = NewGeneratorRegistry()

// NewGeneratorRegistry returns a registry holding uuid, ulid, snowflake
// (machine 1) and nanoid.
func NewGeneratorRegistry() *GeneratorRegistry {
	r := &GeneratorRegistry{generators: make(map[string]IDGenerator)}
	r.Register(UUIDGenerator{})
	r.Register(NewULIDGenerator())
	r.Register(NewSnowflakeGenerator(1))
	r.Register(NewNanoIDGenerator(0, ""))
	return r
}

// Register adds or replaces the generator under its Type name.
func (r *GeneratorRegistry) Register(g IDGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Type()] = g
}

func (r *GeneratorRegistry) Get(name string) (IDGenerator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	return g, ok
}

func (r *GeneratorRegistry) Generate(name string) (param.Value, error) {
	g, ok := r.Get(name)
	if !ok {
		return param.Null(), fmt.Errorf("unknown generator type: %s", name)
	}
	return g.Generate()
}

func RegisterGenerator(g IDGenerator) {
	defaultRegistry.Register(g)
}

// GenerateID generates a key value with the named generator of the default
// registry.
func GenerateID(name string) (param.Value, error) {
	return defaultRegistry.Generate(name)
}
