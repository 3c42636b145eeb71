package correlation

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// IDGenerator generates run IDs
type IDGenerator struct {
	serviceName string
	rng         *rand.Rand
	now         func() time.Time
}

// NewIDGenerator creates a new run ID generator
func NewIDGenerator(serviceName string) *IDGenerator {
	return &IDGenerator{
		serviceName: serviceName,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// Generate creates a new ID.
// Format: {service}-{timestamp}-{random}, e.g. buyer-1699564823-a3f9c2
func (g *IDGenerator) Generate() string {
	timestamp := g.now().Unix()
	random := g.rng.Intn(0xFFFFFF)
	return fmt.Sprintf("%s-%d-%06x", g.serviceName, timestamp, random)
}

type contextKey string

// IDKey is the context key for the run ID
const IDKey contextKey = "correlation_id"

// WithID adds the ID to ctx
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, IDKey, id)
}

// FromContext retrieves the ID from ctx
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(IDKey).(string)
	return id, ok && id != ""
}

// GetOrGenerate retrieves the ID from ctx or generates and attaches a new one
func GetOrGenerate(ctx context.Context, generator *IDGenerator) (string, context.Context) {
	if id, ok := FromContext(ctx); ok {
		return id, ctx
	}
	id := generator.Generate()
	return id, WithID(ctx, id)
}
