package core

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

const (
	Entertainment  Category = "Entertainment"
	Bills          Category = "Bills"
	Groceries      Category = "Groceries"
	DiningOut      Category = "Dining Out"
	Transportation Category = "Transportation"
	PersonalCare   Category = "Personal Care"
	Education      Category = "Education"
	Lifestyle      Category = "Lifestyle"
	Shopping       Category = "Shopping"
	General        Category = "General"
	Income         Category = "Income"

	// AllTransactions is the list filter sentinel meaning "no category filter".
	AllTransactions = "All Transactions"
)

type (
	Category string

	// Theme is a "#RRGGBB" color token used by the dashboard.
	Theme string

	Transaction struct {
		ID        string    `json:"id"`
		Avatar    string    `json:"avatar"`
		Name      string    `json:"name"`
		Category  Category  `json:"category"`
		Date      time.Time `json:"date"`
		Amount    Money     `json:"amount"`
		Recurring bool      `json:"recurring"`
	}

	Budget struct {
		Category  Category `json:"category"`
		Maximum   Money    `json:"maximum"`
		Spent     Money    `json:"spent"`
		Remaining Money    `json:"remaining"`
		Theme     Theme    `json:"theme"`
		// Transactions holds the IDs of the transactions linked by category.
		Transactions []string `json:"transactions"`
	}

	Pot struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Target Money  `json:"target"`
		Total  Money  `json:"total"`
		Theme  Theme  `json:"theme"`
	}

	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidTheme    = errors.New("invalid theme")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
)

var categories = []Category{
	Entertainment, Bills, Groceries, DiningOut, Transportation,
	PersonalCare, Education, Lifestyle, Shopping, General, Income,
}

var themePattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Categories returns every valid category in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory resolves s case-insensitively to a known category.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c Category) Validate() error {
	_, err := ParseCategory(string(c))
	return err
}

func (t Theme) Validate() error {
	if !themePattern.MatchString(string(t)) {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, string(t))
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if len(t.Name) > 200 {
		return fmt.Errorf("%w (max 200 characters)", ErrNameTooLong)
	}
	if err := t.Category.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.Amount.Cents > MaxCents || t.Amount.Cents < -MaxCents {
		return fmt.Errorf("%w: %s exceeds the amount limit", ErrInvalidAmount, t.Amount)
	}
	return nil
}

// IsOutflow reports whether the transaction moves money out of the account.
func (t Transaction) IsOutflow() bool {
	return t.Amount.Cents < 0
}

func (b Budget) Validate() error {
	if err := b.Category.Validate(); err != nil {
		return err
	}
	if err := b.Maximum.Validate(); err != nil {
		return fmt.Errorf("maximum: %w", err)
	}
	return b.Theme.Validate()
}

func (p Pot) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 30 {
		return fmt.Errorf("pot %w (max 30 characters)", ErrNameTooLong)
	}
	if err := p.Target.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if p.Total.Cents < 0 {
		return fmt.Errorf("total: %w", ErrInvalidAmount)
	}
	return p.Theme.Validate()
}

// NormalizeEmail lowercases and trims an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	addr, err := mail.ParseAddress(u.Email)
	if err != nil || addr.Address != u.Email {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, u.Email)
	}
	return nil
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}
