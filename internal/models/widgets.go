package models

import "time"

// Widget document payloads. These are serialized into the document store,
// so field names follow the JSON the page reads.

type DiaryEntry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Mood      string    `json:"mood"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LinkItem struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Image     string    `json:"image,omitempty"`
	ImagePath string    `json:"imagePath,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

type CalendarEntry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Date      string    `json:"date"` // YYYY-MM-DD, the day the entry is shown on
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type GuestbookEntry struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	AuthorName string    `json:"authorName"`
	Message    string    `json:"message"`
	Likes      int64     `json:"likes"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PersonaEntry struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"ownerId"`
	Text              string    `json:"text"`
	EmotionAnalysis   string    `json:"emotionAnalysis,omitempty"`
	UploadedImageURL  string    `json:"uploadedImageUrl,omitempty"`
	UploadedImagePath string    `json:"uploadedImagePath,omitempty"`
	GeneratedImageURL string    `json:"generatedImageUrl,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
