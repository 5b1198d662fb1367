package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"linkbio/internal/ids"
	"linkbio/internal/models"
)

// InferenceClient is the remote persona-image / emotion-analysis endpoint.
// Calls are single-shot; retrying is the user's action, not ours.
type InferenceClient interface {
	GenerateImage(ctx context.Context, imageBase64 string) (string, error)
	AnalyzeText(ctx context.Context, text string) (string, error)
}

// ObjectFetcher reads stored asset bytes back, used to feed the uploaded
// photo into image generation.
type ObjectFetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

type PersonaService struct {
	docs      DocumentStore
	inference InferenceClient
	fetcher   ObjectFetcher
	log       zerolog.Logger
}

func NewPersonaService(docs DocumentStore, inference InferenceClient, fetcher ObjectFetcher, log zerolog.Logger) *PersonaService {
	return &PersonaService{
		docs:      docs,
		inference: inference,
		fetcher:   fetcher,
		log:       log,
	}
}

// CreateEntry stores a persona feed entry. Emotion analysis is attempted at
// write time; its failure leaves the field empty rather than failing the
// entry, and the user can regenerate later.
func (s *PersonaService) CreateEntry(ctx context.Context, ownerID, text string) (models.PersonaEntry, error) {
	now := time.Now().UTC()
	entry := models.PersonaEntry{
		ID:        ids.New(),
		OwnerID:   ownerID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if analysis, err := s.inference.AnalyzeText(ctx, text); err != nil {
		s.log.Warn().Err(err).Str("owner_id", ownerID).Msg("emotion analysis failed")
	} else {
		entry.EmotionAnalysis = analysis
	}

	if err := s.docs.MergeWrite(ctx, PersonaCollection(ownerID), entry.ID, asFields(entry)); err != nil {
		return models.PersonaEntry{}, err
	}
	return entry, nil
}

// GenerateImage sends the entry's uploaded photo to the inference endpoint
// and merge-writes the generated image URL into the entry. Requires a prior
// photo upload and a completed emotion analysis.
func (s *PersonaService) GenerateImage(ctx context.Context, ownerID, entryID string) (string, error) {
	doc, err := s.docs.Get(ctx, PersonaCollection(ownerID), entryID)
	if err != nil {
		return "", err
	}

	imagePath, _ := doc.Data["uploadedImagePath"].(string)
	if imagePath == "" {
		return "", fmt.Errorf("entry has no uploaded photo")
	}
	if analysis, _ := doc.Data["emotionAnalysis"].(string); analysis == "" {
		return "", fmt.Errorf("entry has no emotion analysis")
	}

	data, err := s.fetcher.Fetch(ctx, imagePath)
	if err != nil {
		return "", fmt.Errorf("fetch uploaded photo: %w", err)
	}

	resultURL, err := s.inference.GenerateImage(ctx, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return "", err
	}

	err = s.docs.MergeWrite(ctx, PersonaCollection(ownerID), entryID, map[string]any{
		"generatedImageUrl": resultURL,
		"updatedAt":         time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return resultURL, nil
}
