package stylize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"iffy/internal/domain"
	"iffy/internal/imaging"
	"iffy/internal/metrics"
	"iffy/internal/providers/genai"
	"iffy/internal/storage"
)

const (
	commentaryFailed = "이미지를 만들지 못했어요. 다시 시도해볼까요?"
	commentaryQuota  = "AI 최대 사용량을 초과했어요."
)

var ErrMissingSource = errors.New("stylize: original image is not available")

type Stylizer interface {
	Stylize(ctx context.Context, req genai.StylizeRequest) (*genai.Image, error)
}

// Service turns a processing record into a completed one carrying the
// stylized image, or marks it failed.
type Service struct {
	repo     domain.IffyRepository
	store    storage.BlobStore
	stylizer Stylizer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(repo domain.IffyRepository, store storage.BlobStore, stylizer Stylizer, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		stylizer: stylizer,
		metrics:  m,
		logger:   logger.With().Str("component", "stylize").Logger(),
	}
}

// Run processes one record. Records that already left processing are
// returned unchanged. The returned error is non-nil when the record ended
// failed or could not be loaded.
func (s *Service) Run(ctx context.Context, id string) (*domain.Iffy, error) {
	logger := s.logger.With().Str("iffy_id", id).Logger()
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.metrics.ObserveStylize("error")
		return nil, err
	}
	if rec.Status != domain.IffyStatusProcessing {
		logger.Debug().Str("status", string(rec.Status)).Msg("skip stylization of settled record")
		s.metrics.ObserveStylize("skipped")
		return rec, nil
	}

	start := time.Now()
	url, err := s.render(ctx, rec)
	if err != nil {
		logger.Error().Err(err).Msg("stylization failed")
		return s.fail(ctx, rec, err, logger)
	}

	updated, err := s.repo.Update(ctx, id, domain.IffyUpdate{
		Status:       domain.IffyStatusCompleted,
		GiftImageURL: &url,
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		s.metrics.ObserveStylize("skipped")
		return s.repo.GetByID(ctx, id)
	}
	if err != nil {
		s.metrics.ObserveStylize("error")
		return nil, err
	}
	s.metrics.ObserveStylize("completed")
	logger.Info().Dur("took", time.Since(start)).Str("gift_image_url", url).Msg("stylization completed")
	return updated, nil
}

func (s *Service) render(ctx context.Context, rec *domain.Iffy) (string, error) {
	key, ok := s.store.KeyFromURL(rec.OriginalImageURL)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingSource, rec.OriginalImageURL)
	}
	source, err := s.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingSource, err)
	}

	img, err := s.stylizer.Stylize(ctx, genai.StylizeRequest{
		Prompt:     rec.StylePrompt,
		Source:     source,
		SourceMIME: imaging.ContentType,
		Seed:       rec.ID,
	})
	if err != nil {
		return "", err
	}

	data := img.Data
	if img.Format != imaging.ContentType {
		norm, err := imaging.Normalize(data, 0, 0)
		if err != nil {
			return "", fmt.Errorf("re-encode %s output: %w", img.Format, err)
		}
		data = norm.Data
	}

	url, err := s.store.Put(ctx, "iffy-generated/"+rec.ID+".png", data, imaging.ContentType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return url, nil
}

func (s *Service) fail(ctx context.Context, rec *domain.Iffy, cause error, logger zerolog.Logger) (*domain.Iffy, error) {
	commentary := commentaryFailed
	if errors.Is(cause, domain.ErrQuotaExceeded) {
		commentary = commentaryQuota
	}
	isError := true
	// The caller may have gone away; the record still has to settle.
	updated, err := s.repo.Update(context.WithoutCancel(ctx), rec.ID, domain.IffyUpdate{
		Status:     domain.IffyStatusFailed,
		Commentary: &commentary,
		IsError:    &isError,
	})
	s.metrics.ObserveStylize("failed")
	if err != nil {
		logger.Error().Err(err).Msg("mark record failed")
		return nil, errors.Join(cause, err)
	}
	return updated, cause
}
