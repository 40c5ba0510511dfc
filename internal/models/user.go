package models

import "time"

const (
	LanguageEnglish = "en"
	LanguageArabic  = "ar"
)

// ValidLanguage reports whether lang is one of the supported UI languages.
func ValidLanguage(lang string) bool {
	return lang == LanguageEnglish || lang == LanguageArabic
}

// User is an account identified by a unique email with a preferred language.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"createdAt"`
}
