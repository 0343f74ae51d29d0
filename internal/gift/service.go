package gift

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iffy/internal/catalog"
	"iffy/internal/domain"
	"iffy/internal/imaging"
	"iffy/internal/metrics"
)

type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (domain.AnalysisResult, error)
}

type Recommender interface {
	Recommend(ctx context.Context, prompt string) (domain.RecommendationResult, error)
}

type Catalog interface {
	Entries(ctx context.Context) ([]domain.CatalogEntry, error)
}

type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Trigger starts stylization of a persisted record.
type Trigger interface {
	Fire(ctx context.Context, id string) error
}

// Submission is one uploaded photo.
type Submission struct {
	Image    []byte
	MIMEType string
	UserID   *string
	Locale   string
}

// FailureError is returned when no record could be stored. Failure is the
// payload the caller should answer with.
type FailureError struct {
	Failure domain.IffyFailure
	Err     error
}

func (e *FailureError) Error() string { return e.Err.Error() }
func (e *FailureError) Unwrap() error { return e.Err }

type Deps struct {
	Repo        domain.IffyRepository
	Catalog     Catalog
	Analyzer    Analyzer
	Recommender Recommender
	Store       Uploader
	Trigger     Trigger
	Brackets    catalog.BracketTable
	Policy      Policy
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger

	MaxImageDimension int
	MaxImagePixels    int
	// MarkFailedOnTrigger turns a failed trigger into a failed record.
	MarkFailedOnTrigger bool
	TriggerTimeout      time.Duration

	Now   func() time.Time
	NewID func() string
}

// Service runs the gift selection procedure for uploaded photos.
type Service struct {
	repo        domain.IffyRepository
	catalog     Catalog
	analyzer    Analyzer
	recommender Recommender
	store       Uploader
	trigger     Trigger
	brackets    catalog.BracketTable
	policy      Policy
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	maxDim         int
	maxPixels      int
	markFailed     bool
	triggerTimeout time.Duration
	now            func() time.Time
	newID          func() string

	wg sync.WaitGroup
}

func NewService(d Deps) *Service {
	s := &Service{
		repo:           d.Repo,
		catalog:        d.Catalog,
		analyzer:       d.Analyzer,
		recommender:    d.Recommender,
		store:          d.Store,
		trigger:        d.Trigger,
		brackets:       d.Brackets,
		policy:         d.Policy,
		metrics:        d.Metrics,
		logger:         d.Logger,
		maxDim:         d.MaxImageDimension,
		maxPixels:      d.MaxImagePixels,
		markFailed:     d.MarkFailedOnTrigger,
		triggerTimeout: d.TriggerTimeout,
		now:            d.Now,
		newID:          d.NewID,
	}
	if s.triggerTimeout <= 0 {
		s.triggerTimeout = 3 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	if s.policy.FallbackImageURL == "" {
		s.policy.FallbackImageURL = DefaultFallbackImageURL
	}
	if len(s.policy.FallbackOrder) == 0 {
		s.policy.FallbackOrder = []FallbackStep{FallbackDefault, FallbackFirst}
	}
	return s
}

// choice is the resolved gift plus the copy explaining it.
type choice struct {
	entry    domain.CatalogEntry
	reason   string
	humor    string
	fallback string
}

// Submit classifies the photo, picks a gift and stores the record. A record is
// stored for every outcome except quota exhaustion and persistence failure,
// both reported as *FailureError.
func (s *Service) Submit(ctx context.Context, sub Submission) (*domain.Iffy, error) {
	id := s.newID()
	logger := s.logger.With().Str("iffy_id", id).Logger()
	msgs := s.policy.Messages(sub.Locale)

	rec := &domain.Iffy{
		ID:           id,
		GiftImageURL: s.policy.FallbackImageURL,
		UserID:       sub.UserID,
		Status:       domain.IffyStatusProcessing,
	}

	err := s.prepare(ctx, sub, rec, msgs)
	if errors.Is(err, domain.ErrQuotaExceeded) {
		logger.Warn().Err(err).Msg("gift submission rejected: quota exceeded")
		s.metrics.ObserveJob("rejected", err)
		return nil, &FailureError{Failure: s.failure(id, sub.Locale, err), Err: err}
	}
	if err != nil {
		logger.Error().Err(err).Str("error_code", domain.ErrorCode(err)).Msg("gift selection failed")
		rec.Status = domain.IffyStatusFailed
		rec.IsError = true
		rec.Commentary = s.policy.FailureCommentary(sub.Locale, err)
		rec.Humor = msgs.ErrorHumor
		if rec.GiftName == "" {
			rec.GiftName = msgs.ErrorGiftName
		}
		if rec.Desc == "" {
			rec.Desc = msgs.AnalysisFailedDesc
		}
	}

	saved, perr := s.repo.Create(ctx, rec)
	if perr != nil {
		if !errors.Is(perr, domain.ErrPersistence) {
			perr = fmt.Errorf("%w: %w", domain.ErrPersistence, perr)
		}
		logger.Error().Err(perr).Msg("persist iffy")
		s.metrics.ObserveJob("unpersisted", perr)
		return nil, &FailureError{Failure: s.failure(id, sub.Locale, perr), Err: perr}
	}

	s.metrics.ObserveJob(string(saved.Status), err)
	if saved.Status == domain.IffyStatusProcessing {
		s.fire(saved.ID, sub.Locale, logger)
	}
	logger.Info().
		Str("status", string(saved.Status)).
		Str("gift_name", saved.GiftName).
		Bool("is_person", saved.IsPerson).
		Msg("gift submission stored")
	return saved, nil
}

// prepare fills rec up to the point of persistence. Fields set before the
// first fatal error are kept.
func (s *Service) prepare(ctx context.Context, sub Submission, rec *domain.Iffy, msgs Messages) error {
	entries, err := s.catalog.Entries(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: catalog is empty", domain.ErrCatalogUnavailable)
	}

	analysis, err := s.analyzer.Analyze(ctx, sub.Image, sub.MIMEType)
	if err != nil {
		if errors.Is(err, domain.ErrAnalysis) || errors.Is(err, domain.ErrQuotaExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrAnalysis, err)
	}
	if analysis.EstimatedAge < 0 {
		analysis.EstimatedAge = 0
	}
	rec.Age = analysis.EstimatedAge
	rec.IsPerson = analysis.IsPerson
	rec.Desc = analysis.Description

	c, err := s.choose(ctx, entries, analysis, msgs, sub.Locale)
	if err != nil {
		return err
	}
	if c.fallback != "" {
		s.metrics.ObserveFallback(c.fallback)
	}
	rec.GiftName = c.entry.Name
	rec.Brand = c.entry.Brand
	rec.Link = c.entry.PurchaseLink
	rec.ProductImageURL = c.entry.ImageURL
	rec.Commentary = c.reason
	rec.Humor = c.humor
	rec.StylePrompt = StylePrompt(analysis)

	url, err := s.upload(ctx, sub.Image)
	if err != nil {
		return err
	}
	rec.GiftImageURL = url
	rec.OriginalImageURL = url
	return nil
}

func (s *Service) choose(ctx context.Context, entries []domain.CatalogEntry, a domain.AnalysisResult, msgs Messages, locale string) (choice, error) {
	if !a.IsPerson {
		entry, err := s.defaultEntry(entries)
		return choice{entry: entry, reason: msgs.NonPersonReason, humor: msgs.NonPersonHumor, fallback: "non_person"}, err
	}

	label := s.brackets.Label(a.EstimatedAge)
	candidates := catalog.InBracket(entries, label)
	if len(candidates) == 0 {
		entry, err := s.defaultEntry(entries)
		return choice{
			entry:    entry,
			reason:   fmt.Sprintf(msgs.EmptyBracketReason, label),
			humor:    msgs.EmptyBracketHumor,
			fallback: "empty_bracket",
		}, err
	}

	picked, err := s.recommender.Recommend(ctx, RecommendationPrompt(candidates, a, label, locale))
	if err != nil {
		if errors.Is(err, domain.ErrRecommendation) {
			return choice{}, err
		}
		return choice{}, fmt.Errorf("%w: %w", domain.ErrRecommendation, err)
	}
	if entry, ok := catalog.FindByName(candidates, picked.SelectedProductName); ok {
		return choice{entry: entry, reason: picked.Reason, humor: picked.HumorLine}, nil
	}

	for _, step := range s.policy.FallbackOrder {
		switch step {
		case FallbackDefault:
			if entry, ok := catalog.FindByName(entries, s.policy.DefaultEntry); ok {
				return choice{entry: entry, reason: msgs.DefaultReason, humor: msgs.DefaultHumor, fallback: "default_entry"}, nil
			}
		case FallbackFirst:
			return choice{entry: candidates[0], reason: msgs.SubstituteReason, humor: msgs.SubstituteHumor, fallback: "first_candidate"}, nil
		}
	}
	return choice{}, fmt.Errorf("%w: %q matched none of %d candidates", domain.ErrNoCandidateAvailable, picked.SelectedProductName, len(candidates))
}

func (s *Service) defaultEntry(entries []domain.CatalogEntry) (domain.CatalogEntry, error) {
	entry, ok := catalog.FindByName(entries, s.policy.DefaultEntry)
	if !ok {
		return domain.CatalogEntry{}, fmt.Errorf("%w: %q", domain.ErrCatalogEntryMissing, s.policy.DefaultEntry)
	}
	return entry, nil
}

func (s *Service) upload(ctx context.Context, image []byte) (string, error) {
	norm, err := imaging.Normalize(image, s.maxDim, s.maxPixels)
	if err != nil {
		return "", fmt.Errorf("%w: normalize upload: %w", domain.ErrStorage, err)
	}
	key := fmt.Sprintf("iffy-original/%d-%s.png", s.now().UnixMilli(), uuid.NewString())
	url, err := s.store.Put(ctx, key, norm.Data, imaging.ContentType)
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %w", domain.ErrStorage, key, err)
	}
	if url == "" {
		return "", fmt.Errorf("%w: no public url for %s", domain.ErrStorage, key)
	}
	return url, nil
}

func (s *Service) failure(id, locale string, err error) domain.IffyFailure {
	return domain.IffyFailure{
		ID:         id,
		IsError:    true,
		Commentary: s.policy.FailureCommentary(locale, err),
		Status:     domain.IffyStatusFailed,
		ErrorCode:  domain.ErrorCode(err),
		UpdatedAt:  s.now().UTC(),
	}
}

// fire hands the record to the stylization trigger without blocking the
// caller. Wait blocks until every pending trigger returned.
func (s *Service) fire(id, locale string, logger zerolog.Logger) {
	if s.trigger == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.triggerTimeout)
		defer cancel()

		err := s.trigger.Fire(ctx, id)
		if err == nil {
			logger.Debug().Msg("stylization triggered")
			return
		}
		err = fmt.Errorf("%w: %w", domain.ErrGenerationTrigger, err)
		logger.Warn().Err(err).Msg("stylization trigger failed")
		if !s.markFailed {
			return
		}
		commentary := s.policy.Messages(locale).ErrorCommentary
		isError := true
		if _, uerr := s.repo.Update(ctx, id, domain.IffyUpdate{
			Status:     domain.IffyStatusFailed,
			Commentary: &commentary,
			IsError:    &isError,
		}); uerr != nil {
			logger.Error().Err(uerr).Msg("mark iffy failed after trigger error")
		}
	}()
}

func (s *Service) Wait() {
	s.wg.Wait()
}
