package models

import "time"

type Club struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   *string   `json:"description,omitempty" db:"description"`
	IsPrivate     bool      `json:"isPrivate" db:"is_private"`
	LogoURL       *string   `json:"logoUrl,omitempty" db:"logo_url"`
	CoverImageURL *string   `json:"coverImageUrl,omitempty" db:"cover_image_url"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

type ClubImageKind string

const (
	ClubImageLogo  ClubImageKind = "logo"
	ClubImageCover ClubImageKind = "cover"
)

func (k ClubImageKind) Valid() bool {
	return k == ClubImageLogo || k == ClubImageCover
}
