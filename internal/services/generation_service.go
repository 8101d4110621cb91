// Package services – GenerationService
//
// This file implements the generation orchestrator and the ownership-scoped
// edit operations on the per-user ledger. One ledger row exists per
// (user, catalog item, variant name) tuple: generating again under the same
// key overwrites the AI fields of the existing row in place instead of
// duplicating it, while a new variant name creates a sibling row.
//
// Failure handling around the AI collaborator is deliberately asymmetric.
// A transport or HTTP-status failure gets an error-status audit entry before
// the error is propagated; a response that arrives but violates the
// {description, keywords} contract is surfaced as ai.ErrBadResponse with no
// audit write, and handlers map it to a gateway-style status.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/ai"
	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/prompt"
)

// GenerationRepo defines the repository contract required by
// GenerationService.
type GenerationRepo interface {
	// GetItem fetches a catalog item by internal id.
	GetItem(ctx context.Context, db *gorm.DB, id uint) (*domain.CatalogItem, error)

	// CreateGeneration inserts a new ledger row.
	CreateGeneration(ctx context.Context, db *gorm.DB, g *domain.UserGeneration) error

	// GetGenerationByKey fetches the row for the (user, item, variant) key.
	GetGenerationByKey(ctx context.Context, db *gorm.DB, userID, catalogItemID uint, variantName string) (*domain.UserGeneration, error)

	// GetOwnedGeneration fetches a row by id scoped to its owner.
	GetOwnedGeneration(ctx context.Context, db *gorm.DB, id, ownerID uint) (*domain.UserGeneration, error)

	// UpdateGenerationFields applies column updates to a ledger row.
	UpdateGenerationFields(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error

	// DeleteGeneration hard-deletes a ledger row.
	DeleteGeneration(ctx context.Context, db *gorm.DB, id uint) error

	// ListGenerations returns the user's rows with catalog items preloaded.
	ListGenerations(ctx context.Context, db *gorm.DB, userID uint) ([]domain.UserGeneration, error)

	// SearchGenerationsByItemName filters the user's rows by item name.
	SearchGenerationsByItemName(ctx context.Context, db *gorm.DB, userID uint, needle string) ([]domain.UserGeneration, error)
}

// ItemView is the nested catalog item rendered inside a generation view.
// When the referenced item is gone the view degrades to a placeholder
// instead of failing the request.
type ItemView struct {
	ID         uint    `json:"id"`
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	PhotoURL   string  `json:"photo_url"`
	Price      float64 `json:"price"`
}

// GenerationView is the API shape of one ledger row.
type GenerationView struct {
	ID            uint     `json:"id"`
	VariantName   string   `json:"variant_name"`
	Description   string   `json:"ai_description"`
	Keywords      string   `json:"ai_keywords"`
	PromptVersion string   `json:"prompt_version"`
	ExportStatus  string   `json:"export_status"`
	ExportCount   int      `json:"export_count"`
	Item          ItemView `json:"item"`
}

// GenerationPatch carries the editable fields of an update request. Nil
// pointers mean "not supplied"; the allow-list is exactly these three fields.
type GenerationPatch struct {
	VariantName *string `json:"variant_name"`
	Description *string `json:"ai_description"`
	Keywords    *string `json:"ai_keywords"`
}

// GenerationService orchestrates AI content generation and owns the
// ownership-scoped ledger mutations.
type GenerationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the ledger repository used by this service.
	Repo GenerationRepo
	// AI is the external generation collaborator.
	AI ai.Generator
	// Prompt is the versioned system prompt sent with every call.
	Prompt *prompt.SystemPrompt
	// Audit records mutations and transport failures.
	Audit *AuditLog
}

// NewGenerationService constructs a GenerationService.
func NewGenerationService(db *gorm.DB, r GenerationRepo, gen ai.Generator, p *prompt.SystemPrompt, audit *AuditLog) *GenerationService {
	return &GenerationService{DB: db, Repo: r, AI: gen, Prompt: p, Audit: audit}
}

// Generate runs one generation for (userID, itemID, variantName) and upserts
// the result into the ledger. A blank variant name falls back to the default.
// The returned flag reports whether a new row was created (true) or an
// existing one was overwritten (false).
func (s *GenerationService) Generate(ctx context.Context, userID, itemID uint, variantName string) (*GenerationView, bool, error) {
	variantName = strings.TrimSpace(variantName)
	if variantName == "" {
		variantName = domain.DefaultVariantName
	}

	item, err := s.Repo.GetItem(ctx, s.DB, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrItemNotFound
		}
		return nil, false, err
	}

	result, err := s.AI.Generate(ctx, s.Prompt.Content, itemSummary(item))
	if err != nil {
		if errors.Is(err, ai.ErrBadResponse) {
			return nil, false, err
		}
		s.Audit.Record(ctx, &userID, ActionGenerateError, item.ExternalID,
			err.Error(), domain.LogStatusError)
		return nil, false, fmt.Errorf("generation failed: %w", err)
	}
	keywords := strings.Join(result.Keywords, ", ")

	existing, err := s.Repo.GetGenerationByKey(ctx, s.DB, userID, itemID, variantName)
	switch {
	case err == nil:
		fields := map[string]any{
			"description":    result.Description,
			"keywords":       keywords,
			"prompt_version": s.Prompt.Version,
		}
		if err := s.Repo.UpdateGenerationFields(ctx, s.DB, existing.ID, fields); err != nil {
			return nil, false, err
		}
		existing.Description = result.Description
		existing.Keywords = keywords
		existing.PromptVersion = s.Prompt.Version

		s.Audit.Record(ctx, &userID, ActionGenerate, item.ExternalID,
			fmt.Sprintf("regenerated variant %q", variantName), domain.LogStatusCompleted)
		return viewOf(existing, item), false, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		g := &domain.UserGeneration{
			UserID:        userID,
			CatalogItemID: itemID,
			VariantName:   variantName,
			Description:   result.Description,
			Keywords:      keywords,
			PromptVersion: s.Prompt.Version,
			ExportStatus:  domain.ExportStatusNotExported,
		}
		if err := s.Repo.CreateGeneration(ctx, s.DB, g); err != nil {
			return nil, false, err
		}
		s.Audit.Record(ctx, &userID, ActionGenerate, item.ExternalID,
			fmt.Sprintf("generated variant %q", variantName), domain.LogStatusCompleted)
		return viewOf(g, item), true, nil

	default:
		return nil, false, err
	}
}

// Update applies an allow-listed patch to a ledger row owned by ownerID. An
// empty patch is rejected; a row owned by someone else is reported as not
// found.
func (s *GenerationService) Update(ctx context.Context, ownerID, id uint, patch GenerationPatch) (*GenerationView, error) {
	fields := map[string]any{}
	if patch.VariantName != nil && strings.TrimSpace(*patch.VariantName) != "" {
		fields["variant_name"] = strings.TrimSpace(*patch.VariantName)
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Keywords != nil {
		fields["keywords"] = *patch.Keywords
	}
	if len(fields) == 0 {
		return nil, ErrEmptyPatch
	}

	if _, err := s.Repo.GetOwnedGeneration(ctx, s.DB, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, err
	}
	if err := s.Repo.UpdateGenerationFields(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Renaming onto an existing (user, item, variant) key.
			return nil, ErrVariantExists
		}
		return nil, err
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	s.Audit.Record(ctx, &ownerID, ActionUpdateGeneration, fmt.Sprint(id),
		"updated fields: "+strings.Join(names, ", "), domain.LogStatusCompleted)

	g, err := s.Repo.GetOwnedGeneration(ctx, s.DB, id, ownerID)
	if err != nil {
		return nil, err
	}
	item, err := s.Repo.GetItem(ctx, s.DB, g.CatalogItemID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return viewOf(g, item), nil
}

// Delete removes a ledger row owned by ownerID. A row owned by someone else
// is reported as not found.
func (s *GenerationService) Delete(ctx context.Context, ownerID, id uint) error {
	if _, err := s.Repo.GetOwnedGeneration(ctx, s.DB, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGenerationNotFound
		}
		return err
	}
	if err := s.Repo.DeleteGeneration(ctx, s.DB, id); err != nil {
		return err
	}
	s.Audit.Record(ctx, &ownerID, ActionDeleteGeneration, fmt.Sprint(id),
		"deleted generation", domain.LogStatusCompleted)
	return nil
}

// List returns the user's ledger newest first.
func (s *GenerationService) List(ctx context.Context, userID uint) ([]GenerationView, error) {
	gens, err := s.Repo.ListGenerations(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	return viewsOf(gens), nil
}

// Search returns the user's ledger rows whose catalog item name contains
// needle, case-insensitively.
func (s *GenerationService) Search(ctx context.Context, userID uint, needle string) ([]GenerationView, error) {
	gens, err := s.Repo.SearchGenerationsByItemName(ctx, s.DB, userID, needle)
	if err != nil {
		return nil, err
	}
	return viewsOf(gens), nil
}

// itemSummary renders the free-text product summary sent to the AI
// collaborator. Only fields with content are included.
func itemSummary(item *domain.CatalogItem) string {
	parts := []string{"Product name: " + item.Name}
	if item.Material != "" {
		parts = append(parts, "Material: "+item.Material)
	}
	if item.ImageTitle != "" {
		parts = append(parts, "Also known as: "+item.ImageTitle)
	}
	parts = append(parts, fmt.Sprintf("Price: %.2f", item.Price))
	return strings.Join(parts, "\n")
}

func viewOf(g *domain.UserGeneration, item *domain.CatalogItem) *GenerationView {
	v := &GenerationView{
		ID:            g.ID,
		VariantName:   g.VariantName,
		Description:   g.Description,
		Keywords:      g.Keywords,
		PromptVersion: g.PromptVersion,
		ExportStatus:  g.ExportStatus,
		ExportCount:   g.ExportCount,
	}
	if item != nil && item.ID != 0 {
		v.Item = ItemView{
			ID:         item.ID,
			ExternalID: item.ExternalID,
			Name:       item.Name,
			PhotoURL:   item.PhotoURL,
			Price:      item.Price,
		}
	} else {
		v.Item = ItemView{Name: "item deleted"}
	}
	return v
}

func viewsOf(gens []domain.UserGeneration) []GenerationView {
	out := make([]GenerationView, 0, len(gens))
	for i := range gens {
		out = append(out, *viewOf(&gens[i], &gens[i].CatalogItem))
	}
	return out
}
