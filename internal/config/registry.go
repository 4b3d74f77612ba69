package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/glyphoxa/pkg/audio"
	"github.com/MrWong99/glyphoxa/pkg/provider/asr"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics"
	"github.com/MrWong99/glyphoxa/pkg/provider/refiner"
	"github.com/MrWong99/glyphoxa/pkg/provider/vad"
	"github.com/MrWong99/glyphoxa/pkg/provider/vocalfilter"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	asr         map[string]func(ProviderEntry) (asr.Recognizer, error)
	vocalFilter map[string]func(ProviderEntry) (vocalfilter.Filter, error)
	refiner     map[string]func(ProviderEntry) (refiner.Refiner, error)
	lyrics      map[string]func(ProviderEntry) (lyrics.Source, error)
	vad         map[string]func(ProviderEntry) (vad.Engine, error)
	audio       map[string]func(ProviderEntry) (audio.Platform, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr:         make(map[string]func(ProviderEntry) (asr.Recognizer, error)),
		vocalFilter: make(map[string]func(ProviderEntry) (vocalfilter.Filter, error)),
		refiner:     make(map[string]func(ProviderEntry) (refiner.Refiner, error)),
		lyrics:      make(map[string]func(ProviderEntry) (lyrics.Source, error)),
		vad:         make(map[string]func(ProviderEntry) (vad.Engine, error)),
		audio:       make(map[string]func(ProviderEntry) (audio.Platform, error)),
	}
}

// RegisterASR registers a speech-recognizer factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterVocalFilter registers a vocal-isolation filter factory under name.
func (r *Registry) RegisterVocalFilter(name string, factory func(ProviderEntry) (vocalfilter.Filter, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vocalFilter[name] = factory
}

// RegisterRefiner registers a timestamp-refiner factory under name.
func (r *Registry) RegisterRefiner(name string, factory func(ProviderEntry) (refiner.Refiner, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refiner[name] = factory
}

// RegisterLyrics registers a lyrics-source factory under name.
func (r *Registry) RegisterLyrics(name string, factory func(ProviderEntry) (lyrics.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lyrics[name] = factory
}

// RegisterVAD registers a voice-activity-detection engine factory under name.
func (r *Registry) RegisterVAD(name string, factory func(ProviderEntry) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterAudio registers an audio platform factory under name.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (audio.Platform, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// CreateASR instantiates a speech recognizer using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has
// been registered for that name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVocalFilter instantiates a vocal-isolation filter using the factory
// registered under entry.Name.
func (r *Registry) CreateVocalFilter(entry ProviderEntry) (vocalfilter.Filter, error) {
	r.mu.RLock()
	factory, ok := r.vocalFilter[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vocal_filter/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateRefiner instantiates a timestamp refiner using the factory
// registered under entry.Name.
func (r *Registry) CreateRefiner(entry ProviderEntry) (refiner.Refiner, error) {
	r.mu.RLock()
	factory, ok := r.refiner[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: refiner/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateLyrics instantiates a lyrics source using the factory registered
// under entry.Name.
func (r *Registry) CreateLyrics(entry ProviderEntry) (lyrics.Source, error) {
	r.mu.RLock()
	factory, ok := r.lyrics[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: lyrics/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVAD instantiates a voice-activity-detection engine using the factory
// registered under entry.Name.
func (r *Registry) CreateVAD(entry ProviderEntry) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.vad[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateAudio instantiates an audio platform using the factory registered under entry.Name.
func (r *Registry) CreateAudio(entry ProviderEntry) (audio.Platform, error) {
	r.mu.RLock()
	factory, ok := r.audio[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
