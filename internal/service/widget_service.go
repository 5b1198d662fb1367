package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"linkbio/internal/docstore"
	"linkbio/internal/ids"
	"linkbio/internal/models"
)

// DocumentStore is the document boundary the widget layer writes through.
// Satisfied by docstore.Store.
type DocumentStore interface {
	MergeWrite(ctx context.Context, collection, docID string, fields map[string]any) error
	ArrayAppend(ctx context.Context, collection, docID, field string, values ...any) error
	Increment(ctx context.Context, collection, docID, field string, delta int64) error
	Get(ctx context.Context, collection, docID string) (docstore.Document, error)
	List(ctx context.Context, collection string) ([]docstore.Document, error)
	Delete(ctx context.Context, collection, docID string) error
}

// AssetResolver maps a download URL held in a document back to its storage
// path so entity deletion can clean the asset up.
type AssetResolver interface {
	FindByURL(ctx context.Context, url string) (models.Asset, error)
}

var ErrUnknownWidget = fmt.Errorf("unknown widget")

// styleSchemas lists the style keys each widget accepts. Every widget shares
// one configurable-style capability; only the schema and the document path
// differ per widget.
var styleSchemas = map[string]map[string]struct{}{
	"profile":   styleKeys("backgroundColor", "textColor", "accentColor", "borderRadius", "shadow", "font"),
	"links":     styleKeys("backgroundColor", "textColor", "accentColor", "borderRadius", "shadow", "iconShape"),
	"carousel":  styleKeys("backgroundColor", "borderRadius", "shadow", "autoPlay", "interval"),
	"calendar":  styleKeys("backgroundColor", "textColor", "accentColor", "borderRadius", "shadow"),
	"guestbook": styleKeys("backgroundColor", "textColor", "borderRadius", "shadow"),
	"diary":     styleKeys("backgroundColor", "textColor", "borderRadius", "shadow", "font"),
	"persona":   styleKeys("backgroundColor", "textColor", "borderRadius", "shadow"),
}

func styleKeys(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// WidgetService owns widget content and settings documents.
type WidgetService struct {
	docs    DocumentStore
	assets  AssetResolver
	uploads *UploadService
	log     zerolog.Logger
}

func NewWidgetService(docs DocumentStore, assets AssetResolver, uploads *UploadService, log zerolog.Logger) *WidgetService {
	return &WidgetService{
		docs:    docs,
		assets:  assets,
		uploads: uploads,
		log:     log,
	}
}

func SettingsCollection(ownerID string) string { return fmt.Sprintf("users/%s/settings", ownerID) }
func DiaryCollection(ownerID string) string    { return fmt.Sprintf("users/%s/diary", ownerID) }
func LinksCollection(ownerID string) string    { return fmt.Sprintf("users/%s/links", ownerID) }
func CalendarCollection(ownerID string) string { return fmt.Sprintf("users/%s/calendar", ownerID) }
func GuestbookCollection(ownerID string) string {
	return fmt.Sprintf("users/%s/guestbook", ownerID)
}
func PersonaCollection(ownerID string) string {
	return fmt.Sprintf("users/%s/persona_entries", ownerID)
}

// SaveStyle merge-writes style fields for one widget, rejecting keys outside
// the widget's schema. Untouched keys keep their stored values.
func (s *WidgetService) SaveStyle(ctx context.Context, ownerID, widget string, fields map[string]any) error {
	schema, ok := styleSchemas[widget]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, widget)
	}
	for key := range fields {
		if _, ok := schema[key]; !ok {
			return fmt.Errorf("style key %q not allowed for widget %s", key, widget)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return s.docs.MergeWrite(ctx, SettingsCollection(ownerID), widget, fields)
}

func (s *WidgetService) GetStyle(ctx context.Context, ownerID, widget string) (map[string]any, error) {
	if _, ok := styleSchemas[widget]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWidget, widget)
	}
	doc, err := s.docs.Get(ctx, SettingsCollection(ownerID), widget)
	if err == docstore.ErrNotFound {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (s *WidgetService) CreateDiaryEntry(ctx context.Context, ownerID, title, body, mood string) (models.DiaryEntry, error) {
	now := time.Now().UTC()
	entry := models.DiaryEntry{
		ID:        ids.New(),
		OwnerID:   ownerID,
		Title:     title,
		Body:      body,
		Mood:      mood,
		Images:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docs.MergeWrite(ctx, DiaryCollection(ownerID), entry.ID, asFields(entry)); err != nil {
		return models.DiaryEntry{}, err
	}
	return entry, nil
}

// DeleteDiaryEntry removes the entry document and schedules best-effort
// deletion of every image it referenced. The document store has no
// referential integrity, so this fanout is explicit.
func (s *WidgetService) DeleteDiaryEntry(ctx context.Context, ownerID, entryID string) error {
	doc, err := s.docs.Get(ctx, DiaryCollection(ownerID), entryID)
	if err != nil && err != docstore.ErrNotFound {
		return err
	}

	var paths []string
	if err == nil {
		if urls, ok := doc.Data["images"].([]any); ok {
			for _, u := range urls {
				url, ok := u.(string)
				if !ok {
					continue
				}
				asset, err := s.assets.FindByURL(ctx, url)
				if err != nil {
					s.log.Warn().Str("url", url).Msg("no ledger row for diary image, leaking")
					continue
				}
				paths = append(paths, asset.Path)
			}
		}
	}

	if err := s.docs.Delete(ctx, DiaryCollection(ownerID), entryID); err != nil {
		return err
	}
	s.uploads.DeleteAssets(ctx, paths...)
	return nil
}

func (s *WidgetService) CreateCalendarEntry(ctx context.Context, ownerID, title, date, note string) (models.CalendarEntry, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return models.CalendarEntry{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	entry := models.CalendarEntry{
		ID:        ids.New(),
		OwnerID:   ownerID,
		Title:     title,
		Date:      date,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.docs.MergeWrite(ctx, CalendarCollection(ownerID), entry.ID, asFields(entry)); err != nil {
		return models.CalendarEntry{}, err
	}
	return entry, nil
}

// DeleteCalendarEntry removes the entry document. Calendar entries carry no
// assets, so there is no storage fanout.
func (s *WidgetService) DeleteCalendarEntry(ctx context.Context, ownerID, entryID string) error {
	return s.docs.Delete(ctx, CalendarCollection(ownerID), entryID)
}

func (s *WidgetService) CreateLink(ctx context.Context, ownerID, title, url string, position int) (models.LinkItem, error) {
	link := models.LinkItem{
		ID:        ids.New(),
		OwnerID:   ownerID,
		Title:     title,
		URL:       url,
		Position:  position,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.docs.MergeWrite(ctx, LinksCollection(ownerID), link.ID, asFields(link)); err != nil {
		return models.LinkItem{}, err
	}
	return link, nil
}

func (s *WidgetService) DeleteLink(ctx context.Context, ownerID, linkID string) error {
	doc, err := s.docs.Get(ctx, LinksCollection(ownerID), linkID)
	if err != nil && err != docstore.ErrNotFound {
		return err
	}

	var iconPath string
	if err == nil {
		iconPath, _ = doc.Data["imagePath"].(string)
	}

	if err := s.docs.Delete(ctx, LinksCollection(ownerID), linkID); err != nil {
		return err
	}
	if iconPath != "" {
		s.uploads.DeleteAssets(ctx, iconPath)
	}
	return nil
}

func (s *WidgetService) AddGuestbookEntry(ctx context.Context, ownerID, authorName, message string) (models.GuestbookEntry, error) {
	entry := models.GuestbookEntry{
		ID:         ids.New(),
		OwnerID:    ownerID,
		AuthorName: authorName,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.docs.MergeWrite(ctx, GuestbookCollection(ownerID), entry.ID, asFields(entry)); err != nil {
		return models.GuestbookEntry{}, err
	}
	return entry, nil
}

// LikeGuestbookEntry bumps the like counter through the store's atomic
// increment. Concurrent likes from different viewers never lose updates.
func (s *WidgetService) LikeGuestbookEntry(ctx context.Context, ownerID, entryID string) error {
	return s.docs.Increment(ctx, GuestbookCollection(ownerID), entryID, "likes", 1)
}

func (s *WidgetService) ListCollection(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.docs.List(ctx, collection)
}

// asFields flattens a widget payload into the map shape MergeWrite takes.
func asFields(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	fields := make(map[string]any)
	_ = json.Unmarshal(raw, &fields)
	return fields
}
