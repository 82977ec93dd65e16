package user

import "time"

// Languages the bot can speak. Anything else falls back to English.
const (
	LangEnglish = "en"
	LangRussian = "ru"
	LangSpanish = "es"
)

func ValidLanguage(code string) bool {
	switch code {
	case LangEnglish, LangRussian, LangSpanish:
		return true
	}
	return false
}

type User struct {
	ID                   int64      `json:"id"`
	Username             string     `json:"username"`
	FirstName            string     `json:"firstName"`
	Points               int        `json:"points"`
	Language             string     `json:"language"`
	LastSeen             time.Time  `json:"lastSeen"`
	ReferredByID         *int64     `json:"referredById,omitempty"`
	NotificationsEnabled bool       `json:"notificationsEnabled"`
	SubscriptionEnd      *time.Time `json:"subscriptionEnd,omitempty"`
}

// IsPremium reports whether the subscription is active at the given instant.
func (u *User) IsPremium(now time.Time) bool {
	return u.SubscriptionEnd != nil && u.SubscriptionEnd.After(now)
}
