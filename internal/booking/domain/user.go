package domain

// TranslatorProfile holds the attributes used to match a translator to jobs
type TranslatorProfile struct {
	UserID         int64           `json:"user_id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Mobile         string          `json:"mobile"`
	Type           TranslatorType  `json:"type"`
	Languages      []int64         `json:"languages"`
	Gender         Gender          `json:"gender"`
	Level          TranslatorLevel `json:"level"`
	Towns          []string        `json:"towns"`
	NoEmergency    bool            `json:"no_emergency"`
	NoNighttime    bool            `json:"no_nighttime"`
	NoNotification bool            `json:"no_notification"`
	Active         bool            `json:"active"`
}

// SpeaksLanguage reports whether the translator covers the language id
func (p *TranslatorProfile) SpeaksLanguage(id int64) bool {
	for _, l := range p.Languages {
		if l == id {
			return true
		}
	}
	return false
}

// Recipient converts the profile into a notification recipient
func (p *TranslatorProfile) Recipient() Recipient {
	return Recipient{
		UserID:         p.UserID,
		Name:           p.Name,
		Email:          p.Email,
		Mobile:         p.Mobile,
		NoNighttime:    p.NoNighttime,
		NoNotification: p.NoNotification,
	}
}

// Customer is the requester side of a booking
type Customer struct {
	UserID         int64        `json:"user_id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Mobile         string       `json:"mobile"`
	ConsumerType   ConsumerType `json:"consumer_type"`
	CustomerType   string       `json:"customer_type"`
	Towns          []string     `json:"towns"`
	Address        string       `json:"address"`
	Instructions   string       `json:"instructions"`
	Town           string       `json:"town"`
	NoNighttime    bool         `json:"no_nighttime"`
	NoNotification bool         `json:"no_notification"`
}

// Recipient converts the customer into a notification recipient
func (c *Customer) Recipient() Recipient {
	return Recipient{
		UserID:         c.UserID,
		Name:           c.Name,
		Email:          c.Email,
		Mobile:         c.Mobile,
		NoNighttime:    c.NoNighttime,
		NoNotification: c.NoNotification,
	}
}

// Recipient is anyone a notification can be addressed to
type Recipient struct {
	UserID         int64  `json:"user_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile"`
	NoNighttime    bool   `json:"no_nighttime"`
	NoNotification bool   `json:"no_notification"`
}

// Actor is the identity performing a lifecycle operation
type Actor struct {
	ID   int64  `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}
