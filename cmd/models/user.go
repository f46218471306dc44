package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name                  string    `gorm:"column:name;size:255;not null" json:"name"`
	Email                 string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash          string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role                  string    `gorm:"column:role;size:50;not null;default:client" json:"role"`
	ProfileImage          string    `gorm:"column:profile_image;size:255" json:"profile_image"`
	EmailVerified         bool      `gorm:"column:email_verified;default:false" json:"email_verified"`
	EmailVerificationCode string    `gorm:"size:6" json:"-"`
	VerificationExpiry    time.Time `gorm:"" json:"-"`
	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`

	Lawyer *Lawyer `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"lawyer,omitempty"`
}

type Lawyer struct {
	gorm.Model
	UserID          uint    `gorm:"column:user_id;not null" json:"user_id"`
	Specialty       string  `gorm:"column:specialty;size:255" json:"specialty"`
	Bio             string  `gorm:"column:bio;type:text" json:"bio"`
	Location        string  `gorm:"column:location;size:255" json:"location"`
	ConsultationFee float64 `gorm:"column:consultation_fee;default:0" json:"consultation_fee"`
	Verified        bool    `gorm:"column:verified;default:false" json:"verified"`

	AverageRating float64 `gorm:"column:average_rating;default:0" json:"average_rating"`
	TotalReviews  int     `gorm:"column:total_reviews;default:0" json:"total_reviews"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Reviews []Review `gorm:"foreignKey:LawyerID" json:"reviews,omitempty"`
}

func (Lawyer) TableName() string {
	return "lawyers"
}

type Review struct {
	gorm.Model
	UserID   uint    `gorm:"column:user_id;not null" json:"user_id"`
	LawyerID uint    `gorm:"column:lawyer_id;not null" json:"lawyer_id"`
	Rating   float64 `gorm:"column:rating;not null" json:"rating"`
	Comment  string  `gorm:"column:comment;type:text" json:"comment"`
	User     *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null"`
	Token     string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}
