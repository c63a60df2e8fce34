package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Generator creates opaque IDs for sync runs and audit rows.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator yields prefix_<unix-seconds>_<hex> so IDs sort roughly by creation time.
type RandomGenerator struct {
	prefix string
	now    func() time.Time
}

func NewRandomGenerator() *RandomGenerator {
	return NewPrefixedGenerator("run")
}

func NewPrefixedGenerator(prefix string) *RandomGenerator {
	return &RandomGenerator{prefix: prefix, now: time.Now}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	stamp := strconv.FormatInt(g.now().UTC().Unix(), 10)
	if g.prefix == "" {
		return stamp + "_" + hex.EncodeToString(buf), nil
	}
	return g.prefix + "_" + stamp + "_" + hex.EncodeToString(buf), nil
}
