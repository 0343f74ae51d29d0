package stylize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"iffy/internal/domain"
	"iffy/internal/providers/genai"
	"iffy/internal/storage"
)

type memoryRepo struct {
	mu      sync.Mutex
	records map[string]domain.Iffy
}

func (r *memoryRepo) Create(ctx context.Context, iffy *domain.Iffy) (*domain.Iffy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[iffy.ID] = *iffy
	cp := *iffy
	return &cp, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*domain.Iffy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryRepo) Update(ctx context.Context, id string, upd domain.IffyUpdate) (*domain.Iffy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !rec.Status.CanTransition(upd.Status) {
		return nil, domain.ErrInvalidTransition
	}
	rec.Status = upd.Status
	if upd.GiftImageURL != nil {
		rec.GiftImageURL = *upd.GiftImageURL
	}
	if upd.Commentary != nil {
		rec.Commentary = *upd.Commentary
	}
	if upd.IsError != nil {
		rec.IsError = *upd.IsError
	}
	r.records[id] = rec
	return &rec, nil
}

func (r *memoryRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.records)), nil
}

type stubStylizer struct {
	err error
}

func (s stubStylizer) Stylize(ctx context.Context, req genai.StylizeRequest) (*genai.Image, error) {
	return nil, s.err
}

func setup(t *testing.T, status domain.IffyStatus) (*memoryRepo, *storage.FileStore, *domain.Iffy) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	url, err := store.Put(context.Background(), "iffy-original/1-abc.png", buf.Bytes(), "image/png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec := domain.Iffy{
		ID:               "11111111-2222-3333-4444-555555555555",
		StylePrompt:      "make this person look like a cute cartoon character who is 25 years old, with a soft and playful illustration style",
		GiftImageURL:     url,
		OriginalImageURL: url,
		Status:           status,
	}
	repo := &memoryRepo{records: map[string]domain.Iffy{rec.ID: rec}}
	return repo, store, &rec
}

func TestRunCompletesRecord(t *testing.T) {
	repo, store, rec := setup(t, domain.IffyStatusProcessing)
	svc := NewService(repo, store, genai.NewClient(genai.Options{Logger: zerolog.Nop()}), nil, zerolog.Nop())

	got, err := svc.Run(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got.Status != domain.IffyStatusCompleted {
		t.Fatalf("Status = %s, want completed", got.Status)
	}
	want := "http://localhost:8080/static/iffy-generated/" + rec.ID + ".png"
	if got.GiftImageURL != want {
		t.Fatalf("GiftImageURL = %q, want %q", got.GiftImageURL, want)
	}
	data, err := store.Get(context.Background(), "iffy-generated/"+rec.ID+".png")
	if err != nil || len(data) == 0 {
		t.Fatalf("generated image not stored: %v", err)
	}
}

func TestRunSkipsSettledRecords(t *testing.T) {
	for _, status := range []domain.IffyStatus{domain.IffyStatusCompleted, domain.IffyStatusFailed} {
		repo, store, rec := setup(t, status)
		svc := NewService(repo, store, stubStylizer{err: errors.New("must not be called")}, nil, zerolog.Nop())

		got, err := svc.Run(context.Background(), rec.ID)
		if err != nil {
			t.Fatalf("%s: Run returned error: %v", status, err)
		}
		if got.Status != status || got.GiftImageURL != rec.GiftImageURL {
			t.Fatalf("%s: record changed: %+v", status, got)
		}
	}
}

func TestRunMarksFailures(t *testing.T) {
	tests := []struct {
		name       string
		stylizer   Stylizer
		source     string
		commentary string
	}{
		{name: "provider error", stylizer: stubStylizer{err: errors.New("safety block")}, commentary: commentaryFailed},
		{name: "quota", stylizer: stubStylizer{err: &domain.QuotaError{Provider: "gemini"}}, commentary: commentaryQuota},
		{name: "missing source", stylizer: genai.NewClient(genai.Options{Logger: zerolog.Nop()}), source: "https://elsewhere.test/a.png", commentary: commentaryFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, store, rec := setup(t, domain.IffyStatusProcessing)
			if tc.source != "" {
				r := repo.records[rec.ID]
				r.OriginalImageURL = tc.source
				repo.records[rec.ID] = r
			}
			svc := NewService(repo, store, tc.stylizer, nil, zerolog.Nop())

			got, err := svc.Run(context.Background(), rec.ID)
			if err == nil {
				t.Fatal("expected error")
			}
			if got == nil || got.Status != domain.IffyStatusFailed || !got.IsError {
				t.Fatalf("expected failed record, got %+v", got)
			}
			if got.Commentary != tc.commentary {
				t.Fatalf("Commentary = %q, want %q", got.Commentary, tc.commentary)
			}
			if tc.source != "" && !errors.Is(err, ErrMissingSource) {
				t.Fatalf("expected ErrMissingSource, got %v", err)
			}
		})
	}
}

func TestRunUnknownRecord(t *testing.T) {
	repo, store, _ := setup(t, domain.IffyStatusProcessing)
	svc := NewService(repo, store, stubStylizer{}, nil, zerolog.Nop())

	_, err := svc.Run(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(repo.records) != 1 {
		t.Fatal("unknown record must not be created")
	}
}
