package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Directory is an in-memory domain.Directory
type Directory struct {
	mu          sync.RWMutex
	translators map[int64]domain.TranslatorProfile
	customers   map[int64]domain.Customer
	blacklists  map[int64][]int64
	languages   map[int64]string
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{
		translators: make(map[int64]domain.TranslatorProfile),
		customers:   make(map[int64]domain.Customer),
		blacklists:  make(map[int64][]int64),
		languages:   make(map[int64]string),
	}
}

// AddTranslator stores or replaces a translator profile
func (d *Directory) AddTranslator(p domain.TranslatorProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.translators[p.UserID] = copyProfile(p)
}

// AddCustomer stores or replaces a customer
func (d *Directory) AddCustomer(c domain.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c.Towns = append([]string(nil), c.Towns...)
	d.customers[c.UserID] = c
}

// Block adds translators to a customer's blacklist
func (d *Directory) Block(customerID int64, translatorIDs ...int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blacklists[customerID] = append(d.blacklists[customerID], translatorIDs...)
}

// AddLanguage registers a language name
func (d *Directory) AddLanguage(id int64, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.languages[id] = name
}

// ListActive returns active translators ordered by user id
func (d *Directory) ListActive(_ context.Context) ([]domain.TranslatorProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.TranslatorProfile, 0, len(d.translators))
	for _, p := range d.translators {
		if p.Active {
			out = append(out, copyProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Profile returns a translator profile
func (d *Directory) Profile(_ context.Context, userID int64) (*domain.TranslatorProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.translators[userID]
	if !ok {
		return nil, domain.ErrTranslatorNotFound
	}
	cp := copyProfile(p)
	return &cp, nil
}

// TranslatorByEmail returns the translator with a case-insensitive email match
func (d *Directory) TranslatorByEmail(_ context.Context, email string) (*domain.TranslatorProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.translators {
		if strings.EqualFold(p.Email, email) {
			cp := copyProfile(p)
			return &cp, nil
		}
	}
	return nil, domain.ErrTranslatorNotFound
}

// LanguagesOf returns the language ids a translator covers
func (d *Directory) LanguagesOf(_ context.Context, userID int64) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.translators[userID]
	if !ok {
		return nil, domain.ErrTranslatorNotFound
	}
	return append([]int64{}, p.Languages...), nil
}

// BlacklistOf returns the translators a customer has blocked
func (d *Directory) BlacklistOf(_ context.Context, customerID int64) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]int64(nil), d.blacklists[customerID]...), nil
}

// Customer returns a requester
func (d *Directory) Customer(_ context.Context, userID int64) (*domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.customers[userID]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	c.Towns = append([]string(nil), c.Towns...)
	return &c, nil
}

// LanguageName returns the display name of a language, falling back to its id
func (d *Directory) LanguageName(_ context.Context, languageID int64) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if name, ok := d.languages[languageID]; ok {
		return name, nil
	}
	return fmt.Sprintf("#%d", languageID), nil
}

func copyProfile(p domain.TranslatorProfile) domain.TranslatorProfile {
	p.Languages = append([]int64(nil), p.Languages...)
	p.Towns = append([]string(nil), p.Towns...)
	return p
}
