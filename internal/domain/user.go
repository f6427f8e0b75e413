package domain

// User is a customer, translator or administrator account together with
// the profile fields the booking engine reads.
type User struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Phone string `db:"phone" json:"phone"`
	Role  Role   `db:"role" json:"role"`

	// Customer profile
	ConsumerType string `db:"consumer_type" json:"consumer_type"`
	CustomerType string `db:"customer_type" json:"customer_type"`
	City         string `db:"city" json:"city"`
	Address      string `db:"address" json:"address"`
	Instructions string `db:"instructions" json:"instructions"`

	// Translator profile
	TranslatorType  string  `db:"translator_type" json:"translator_type"`
	TranslatorLevel string  `db:"translator_level" json:"translator_level"`
	Gender          Gender  `db:"gender" json:"gender"`
	Languages       []int64 `db:"-" json:"languages,omitempty"`

	// Notification preferences
	PushDisabled bool `db:"push_disabled" json:"push_disabled"`
	NightMute    bool `db:"night_mute" json:"night_mute"`
}

// IsCustomer reports whether u books interpreters
func (u *User) IsCustomer() bool {
	return u.Role == RoleCustomer
}

// IsTranslator reports whether u interprets
func (u *User) IsTranslator() bool {
	return u.Role == RoleTranslator
}

// SpeaksLanguage reports whether the translator lists languageID
func (u *User) SpeaksLanguage(languageID int64) bool {
	for _, id := range u.Languages {
		if id == languageID {
			return true
		}
	}
	return false
}
