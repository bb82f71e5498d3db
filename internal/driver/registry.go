package driver

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/picaplus/picareader/internal/options"
	"github.com/picaplus/picareader/internal/record"
)

// Decoder turns one input source into a sequence of uniform records.
// ReadOne returns io.EOF once the source is exhausted, and on every call
// after that.
type Decoder interface {
	Open(src any) error
	ReadOne() (record.Record, error)
	Close() error
}

// Detection identifies a serialization by name and, optionally, by the first
// octets of its input.
type Detection struct {
	Name    string
	Aliases []string
	// Sniff reports whether prefix looks like this serialization.
	Sniff func(prefix []byte) bool
	// Priority orders sniffing; lower values are tried first.
	Priority int
}

// Factory builds a fresh, unopened decoder from cfg.
type Factory func(cfg options.Config) Decoder

var (
	regMu    sync.RWMutex
	registry []registeredDriver
)

type registeredDriver struct {
	detect Detection
	newDec Factory
}

// Register stores a detection/factory pair in memory.
func Register(det Detection, newDec Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry = append(registry, registeredDriver{detect: det, newDec: newDec})
	sort.SliceStable(registry, func(i, j int) bool {
		return registry[i].detect.Priority < registry[j].detect.Priority
	})
}

// Lookup returns the factory registered under name or one of its aliases.
func Lookup(name string) (Factory, error) {
	regMu.RLock()
	defer regMu.RUnlock()
	key := strings.ToLower(strings.TrimSpace(name))
	for _, rd := range registry {
		if rd.detect.Name == key {
			return rd.newDec, nil
		}
		for _, alias := range rd.detect.Aliases {
			if alias == key {
				return rd.newDec, nil
			}
		}
	}
	return nil, fmt.Errorf("no decoder registered for format %q", name)
}

// Detect returns the name and factory of the first registered format whose
// sniffer accepts prefix.
func Detect(prefix []byte) (string, Factory, error) {
	regMu.RLock()
	defer regMu.RUnlock()
	for _, rd := range registry {
		if rd.detect.Sniff != nil && rd.detect.Sniff(prefix) {
			return rd.detect.Name, rd.newDec, nil
		}
	}
	return "", nil, fmt.Errorf("unable to detect format from %d leading bytes", len(prefix))
}

// Names lists the registered format names.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(registry))
	for _, rd := range registry {
		names = append(names, rd.detect.Name)
	}
	sort.Strings(names)
	return names
}
