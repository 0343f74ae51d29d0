package domain

import "time"

// IffyStatus enumerates the lifecycle states of a gift job.
type IffyStatus string

const (
	IffyStatusProcessing IffyStatus = "processing"
	IffyStatusCompleted  IffyStatus = "completed"
	IffyStatusFailed     IffyStatus = "failed"
)

// Terminal reports whether no further transition may leave the status.
func (s IffyStatus) Terminal() bool {
	return s == IffyStatusCompleted || s == IffyStatusFailed
}

// CanTransition reports whether moving from s to next keeps the status
// progression monotone.
func (s IffyStatus) CanTransition(next IffyStatus) bool {
	if s == next {
		return !s.Terminal()
	}
	return s == IffyStatusProcessing && next.Terminal()
}

// Iffy is the persisted unit of work for one submitted photo.
type Iffy struct {
	ID               string     `json:"id"`
	Age              int        `json:"age"`
	IsPerson         bool       `json:"is_person"`
	Desc             string     `json:"desc"`
	StylePrompt      string     `json:"style_prompt"`
	IsError          bool       `json:"is_error"`
	GiftName         string     `json:"gift_name"`
	Brand            string     `json:"brand"`
	GiftImageURL     string     `json:"gift_image_url"`
	Commentary       string     `json:"commentary"`
	Link             string     `json:"link"`
	Humor            string     `json:"humor"`
	ProductImageURL  string     `json:"product_image_url"`
	OriginalImageURL string     `json:"original_image_url,omitempty"`
	UserID           *string    `json:"user_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Status           IffyStatus `json:"status"`
}

// IffyFailure is the best-effort payload returned when a record could not be
// persisted. It always carries the generated id.
type IffyFailure struct {
	ID         string     `json:"id"`
	IsError    bool       `json:"is_error"`
	Commentary string     `json:"commentary"`
	Status     IffyStatus `json:"status"`
	ErrorCode  string     `json:"error_code,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IffyUpdate carries the fields the stylization step may change.
type IffyUpdate struct {
	Status       IffyStatus
	GiftImageURL *string
	Commentary   *string
	IsError      *bool
}
