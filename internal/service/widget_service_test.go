package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/docstore"
	"linkbio/internal/models"
	"linkbio/internal/repository"
)

type fakeDocStore struct {
	mergeFn     func(ctx context.Context, collection, docID string, fields map[string]any) error
	getFn       func(ctx context.Context, collection, docID string) (docstore.Document, error)
	incrementFn func(ctx context.Context, collection, docID, field string, delta int64) error

	deleted []string
}

func (f *fakeDocStore) MergeWrite(ctx context.Context, collection, docID string, fields map[string]any) error {
	if f.mergeFn != nil {
		return f.mergeFn(ctx, collection, docID, fields)
	}
	return nil
}

func (f *fakeDocStore) ArrayAppend(context.Context, string, string, string, ...any) error {
	return nil
}

func (f *fakeDocStore) Increment(ctx context.Context, collection, docID, field string, delta int64) error {
	if f.incrementFn != nil {
		return f.incrementFn(ctx, collection, docID, field, delta)
	}
	return nil
}

func (f *fakeDocStore) Get(ctx context.Context, collection, docID string) (docstore.Document, error) {
	if f.getFn != nil {
		return f.getFn(ctx, collection, docID)
	}
	return docstore.Document{}, docstore.ErrNotFound
}

func (f *fakeDocStore) List(context.Context, string) ([]docstore.Document, error) {
	return nil, nil
}

func (f *fakeDocStore) Delete(_ context.Context, collection, docID string) error {
	f.deleted = append(f.deleted, collection+"/"+docID)
	return nil
}

type fakeResolver struct {
	byURL map[string]models.Asset
}

func (f *fakeResolver) FindByURL(_ context.Context, url string) (models.Asset, error) {
	asset, ok := f.byURL[url]
	if !ok {
		return models.Asset{}, repository.ErrAssetNotFound
	}
	return asset, nil
}

func newWidgetFixture(docs *fakeDocStore, resolver *fakeResolver) *WidgetService {
	uploads := NewUploadService(nil, nil, nil, nil, zerolog.Nop())
	return NewWidgetService(docs, resolver, uploads, zerolog.Nop())
}

func TestSaveStyleRejectsUnknownWidget(t *testing.T) {
	svc := newWidgetFixture(&fakeDocStore{}, &fakeResolver{})

	err := svc.SaveStyle(context.Background(), "user-1", "marquee", map[string]any{"backgroundColor": "#fff"})
	assert.ErrorIs(t, err, ErrUnknownWidget)
}

func TestSaveStyleRejectsKeysOutsideSchema(t *testing.T) {
	svc := newWidgetFixture(&fakeDocStore{}, &fakeResolver{})

	err := svc.SaveStyle(context.Background(), "user-1", "guestbook", map[string]any{
		"backgroundColor": "#fff",
		"autoPlay":        true, // carousel-only key
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "autoPlay")
}

func TestSaveStyleMergesIntoSettingsDocument(t *testing.T) {
	var gotCollection, gotDoc string
	var gotFields map[string]any
	docs := &fakeDocStore{
		mergeFn: func(_ context.Context, collection, docID string, fields map[string]any) error {
			gotCollection, gotDoc, gotFields = collection, docID, fields
			return nil
		},
	}
	svc := newWidgetFixture(docs, &fakeResolver{})

	err := svc.SaveStyle(context.Background(), "user-1", "links", map[string]any{
		"iconShape": "circle",
	})

	require.NoError(t, err)
	assert.Equal(t, "users/user-1/settings", gotCollection)
	assert.Equal(t, "links", gotDoc)
	assert.Equal(t, map[string]any{"iconShape": "circle"}, gotFields)
}

func TestGetStyleMissingDocumentIsEmptyStyle(t *testing.T) {
	svc := newWidgetFixture(&fakeDocStore{}, &fakeResolver{})

	style, err := svc.GetStyle(context.Background(), "user-1", "profile")
	require.NoError(t, err)
	assert.Empty(t, style)
}

func TestCreateDiaryEntryWritesDocument(t *testing.T) {
	var gotFields map[string]any
	docs := &fakeDocStore{
		mergeFn: func(_ context.Context, _, _ string, fields map[string]any) error {
			gotFields = fields
			return nil
		},
	}
	svc := newWidgetFixture(docs, &fakeResolver{})

	entry, err := svc.CreateDiaryEntry(context.Background(), "user-1", "Day one", "It rained.", "calm")

	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "It rained.", gotFields["body"])
	assert.Equal(t, "calm", gotFields["mood"])
	assert.Equal(t, []any{}, gotFields["images"])
}

func TestDeleteDiaryEntryCleansReferencedImages(t *testing.T) {
	docs := &fakeDocStore{
		getFn: func(_ context.Context, collection, docID string) (docstore.Document, error) {
			return docstore.Document{
				Collection: collection,
				ID:         docID,
				Data: map[string]any{
					"images": []any{"https://cdn/a.jpg", "https://cdn/unknown.jpg"},
				},
			}, nil
		},
	}
	resolver := &fakeResolver{byURL: map[string]models.Asset{
		"https://cdn/a.jpg": {Path: "private_diary/user-1/1_t_a.jpg"},
	}}
	svc := newWidgetFixture(docs, resolver)

	err := svc.DeleteDiaryEntry(context.Background(), "user-1", "entry-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"users/user-1/diary/entry-1"}, docs.deleted)
}

func TestCreateCalendarEntryWritesDocument(t *testing.T) {
	var gotCollection string
	var gotFields map[string]any
	docs := &fakeDocStore{
		mergeFn: func(_ context.Context, collection, _ string, fields map[string]any) error {
			gotCollection, gotFields = collection, fields
			return nil
		},
	}
	svc := newWidgetFixture(docs, &fakeResolver{})

	entry, err := svc.CreateCalendarEntry(context.Background(), "user-1", "Launch day", "2026-09-01", "ship it")

	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "users/user-1/calendar", gotCollection)
	assert.Equal(t, "Launch day", gotFields["title"])
	assert.Equal(t, "2026-09-01", gotFields["date"])
	assert.Equal(t, "ship it", gotFields["note"])
}

func TestCreateCalendarEntryRejectsBadDate(t *testing.T) {
	svc := newWidgetFixture(&fakeDocStore{}, &fakeResolver{})

	_, err := svc.CreateCalendarEntry(context.Background(), "user-1", "Launch day", "September 1st", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestDeleteCalendarEntryRemovesDocument(t *testing.T) {
	docs := &fakeDocStore{}
	svc := newWidgetFixture(docs, &fakeResolver{})

	require.NoError(t, svc.DeleteCalendarEntry(context.Background(), "user-1", "entry-1"))
	assert.Equal(t, []string{"users/user-1/calendar/entry-1"}, docs.deleted)
}

func TestLikeGuestbookEntryUsesAtomicIncrement(t *testing.T) {
	var gotField string
	var gotDelta int64
	docs := &fakeDocStore{
		incrementFn: func(_ context.Context, _, _, field string, delta int64) error {
			gotField, gotDelta = field, delta
			return nil
		},
	}
	svc := newWidgetFixture(docs, &fakeResolver{})

	require.NoError(t, svc.LikeGuestbookEntry(context.Background(), "user-1", "entry-1"))
	assert.Equal(t, "likes", gotField)
	assert.Equal(t, int64(1), gotDelta)
}
