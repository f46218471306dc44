package models

import "gorm.io/gorm"

type Resource struct {
	gorm.Model
	UserID      uint   `gorm:"column:user_id;not null" json:"user_id"`
	Title       string `gorm:"column:title;size:255;not null" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description"`
	Type        string `gorm:"column:type;size:50;not null" json:"type"`
	Category    string `gorm:"column:category;size:100;not null" json:"category"`
	FilePath    string `gorm:"column:file_path;size:500" json:"file_path,omitempty"`
	Content     string `gorm:"column:content;type:text" json:"content,omitempty"`
	Tags        string `gorm:"column:tags;size:500" json:"tags,omitempty"`

	Author *User `gorm:"foreignKey:UserID" json:"author,omitempty"`
}
