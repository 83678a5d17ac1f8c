// Package lookup assembles persona profiles from the completion provider and
// the image search provider for user confirmation. Nothing is persisted
// here; confirmed profiles go through the catalog.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/personahub/persona-backend/internal/types"
)

const (
	// cacheKeyPrefix namespaces cached lookup profiles in Redis.
	cacheKeyPrefix = "persona:lookup:"
	// cacheTTL is how long assembled profiles stay cached. Profiles of
	// public figures change rarely, so a generous TTL saves provider calls.
	cacheTTL = 24 * time.Hour
)

// ProfileGenerator produces a structured JSON document from a prompt.
type ProfileGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

// PortraitFinder resolves a representative portrait image URL for a name.
type PortraitFinder interface {
	FindPortrait(ctx context.Context, name string) (string, error)
}

// Cache is the subset of the Redis client the lookup service uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Service implements AI-assisted persona lookup.
type Service struct {
	gen    ProfileGenerator
	images PortraitFinder
	cache  Cache
	logger *logrus.Logger
}

// NewService creates a new lookup Service. cache may be nil.
func NewService(gen ProfileGenerator, images PortraitFinder, cache Cache, logger *logrus.Logger) *Service {
	return &Service{gen: gen, images: images, cache: cache, logger: logger}
}

// generatedProfile matches the JSON shape requested from the model.
type generatedProfile struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Gender       string `json:"gender"`
	SystemPrompt string `json:"systemPrompt"`
}

const promptTemplate = `For the famous person named %q, generate a structured JSON object with the following exact keys: "name" (their full official name), "description" (a concise one-sentence summary), "category" (a single relevant category), "gender" (which must be 'male', 'female', or 'neutral'), and "systemPrompt" (a detailed set of instructions for an AI to act as this person). Only return the raw JSON object.`

// Lookup builds a persona profile for the named person. Incomplete provider
// output is rejected with a descriptive error rather than guessed at.
func (s *Service) Lookup(ctx context.Context, name string) (*types.PersonaProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: persona name is required", types.ErrValidation)
	}

	cacheKey := cacheKeyPrefix + strings.ToLower(name)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var profile types.PersonaProfile
			if err := json.Unmarshal([]byte(cached), &profile); err == nil {
				return &profile, nil
			}
		}
	}

	var gen generatedProfile
	if err := s.gen.GenerateJSON(ctx, fmt.Sprintf(promptTemplate, name), &gen); err != nil {
		return nil, err
	}

	if missing := gen.missingField(); missing != "" {
		return nil, fmt.Errorf("%w: provider returned an incomplete profile for %q (missing %s)",
			types.ErrUpstream, name, missing)
	}

	gender := types.Gender(gen.Gender)
	if !gender.Valid() {
		gender = types.GenderNeutral
	}

	imageURL, err := s.images.FindPortrait(ctx, gen.Name)
	if err != nil {
		return nil, err
	}

	profile := &types.PersonaProfile{
		Name:         gen.Name,
		Description:  gen.Description,
		Category:     gen.Category,
		Gender:       gender,
		SystemPrompt: gen.SystemPrompt,
		ImageURL:     imageURL,
	}

	if s.cache != nil {
		if data, err := json.Marshal(profile); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(data), cacheTTL); err != nil {
				s.logger.WithError(err).Warn("failed to cache lookup profile")
			}
		}
	}

	return profile, nil
}

func (g *generatedProfile) missingField() string {
	switch {
	case strings.TrimSpace(g.Name) == "":
		return "name"
	case strings.TrimSpace(g.Description) == "":
		return "description"
	case strings.TrimSpace(g.Category) == "":
		return "category"
	case strings.TrimSpace(g.Gender) == "":
		return "gender"
	case strings.TrimSpace(g.SystemPrompt) == "":
		return "systemPrompt"
	}
	return ""
}
