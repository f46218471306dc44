package models

import "gorm.io/gorm"

// Device is an Expo push token registered by a client app install.
type Device struct {
	gorm.Model
	UserID     uint   `gorm:"column:user_id;not null;index" json:"user_id"`
	Token      string `gorm:"column:token;size:255;not null" json:"token"`
	DeviceType string `gorm:"column:device_type;size:50" json:"device_type"`
	DeviceName string `gorm:"column:device_name;size:255" json:"device_name"`
}

type NotificationHistory struct {
	gorm.Model
	UserID uint   `gorm:"column:user_id;not null;index" json:"user_id"`
	Title  string `gorm:"column:title;size:255" json:"title"`
	Body   string `gorm:"column:body;type:text" json:"body"`
	Status string `gorm:"column:status;size:20" json:"status"`
}
