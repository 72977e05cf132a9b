package category

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/dual/doubletake/internal/graph"
)

// Built-in category tags. Every tag maps to exactly one strategy and
// one output kind.
const (
	Email         = "email"
	FirstName     = "first_name"
	LastName      = "last_name"
	FullName      = "full_name"
	Phone         = "phone"
	StreetAddress = "street_address"
	City          = "city"
	State         = "state"
	PostalCode    = "postal_code"
	Country       = "country"
	SSN           = "ssn"
	NationalID    = "national_id"
	CreditCard    = "credit_card"
	IPAddress     = "ip_address"
	URL           = "url"
	Username      = "username"
	Password      = "password"
	Company       = "company"
	JobTitle      = "job_title"
	DateOfBirth   = "date_of_birth"
	FreeText      = "free_text"
	Age           = "age"
	Latitude      = "latitude"
	Longitude     = "longitude"
	UUID          = "uuid"
	Digits        = "digits"
)

// fakeSource serializes access to a seeded gofakeit.Faker. The faker's
// underlying rand source is not safe for concurrent use, and traversal
// workers for distinct categories may synthesize in parallel.
type fakeSource struct {
	mu sync.Mutex
	f  *gofakeit.Faker
}

func (s *fakeSource) str(fn func(f *gofakeit.Faker) string) Strategy {
	return func(locale string, original graph.Value) (graph.Value, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return graph.String(fn(s.f)), nil
	}
}

// RegisterBuiltins populates a registry with the built-in categories,
// all driven by one faker seeded with seed. The same seed produces the
// same synthesis sequence for a single-threaded scrub, which keeps runs
// reproducible.
//
// Built-in strategies ignore the locale argument: the underlying
// fake-data library generates en-US shaped values. Locale-sensitive
// strategies can be registered on top via Replace.
func RegisterBuiltins(r *Registry, seed uint64) error {
	src := &fakeSource{f: gofakeit.New(seed)}

	strStrategies := map[string]func(f *gofakeit.Faker) string{
		Email:         func(f *gofakeit.Faker) string { return f.Email() },
		FirstName:     func(f *gofakeit.Faker) string { return f.FirstName() },
		LastName:      func(f *gofakeit.Faker) string { return f.LastName() },
		FullName:      func(f *gofakeit.Faker) string { return f.Name() },
		Phone:         func(f *gofakeit.Faker) string { return f.Phone() },
		StreetAddress: func(f *gofakeit.Faker) string { return f.Street() },
		City:          func(f *gofakeit.Faker) string { return f.City() },
		State:         func(f *gofakeit.Faker) string { return f.State() },
		PostalCode:    func(f *gofakeit.Faker) string { return f.Zip() },
		Country:       func(f *gofakeit.Faker) string { return f.Country() },
		SSN:           func(f *gofakeit.Faker) string { return f.SSN() },
		NationalID:    func(f *gofakeit.Faker) string { return f.SSN() },
		CreditCard:    func(f *gofakeit.Faker) string { return f.CreditCardNumber(nil) },
		IPAddress:     func(f *gofakeit.Faker) string { return f.IPv4Address() },
		URL:           func(f *gofakeit.Faker) string { return f.URL() },
		Username:      func(f *gofakeit.Faker) string { return f.Username() },
		Password:      func(f *gofakeit.Faker) string { return f.Password(true, true, true, false, false, 16) },
		Company:       func(f *gofakeit.Faker) string { return f.Company() },
		JobTitle:      func(f *gofakeit.Faker) string { return f.JobTitle() },
		UUID:          func(f *gofakeit.Faker) string { return f.UUID() },
	}

	for tag, fn := range strStrategies {
		if err := r.Register(tag, Entry{Strategy: src.str(fn), Kind: KindString}); err != nil {
			return err
		}
	}

	extra := map[string]Entry{
		DateOfBirth: {Kind: KindString, Strategy: src.dateOfBirth()},
		FreeText:    {Kind: KindString, Strategy: src.freeText()},
		Digits:      {Kind: KindString, Strategy: src.digits()},
		Age:         {Kind: KindInt, Strategy: src.age()},
		Latitude:    {Kind: KindFloat, Strategy: src.latitude()},
		Longitude:   {Kind: KindFloat, Strategy: src.longitude()},
	}

	for tag, e := range extra {
		if err := r.Register(tag, e); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry creates a registry pre-populated with the built-in
// categories.
func NewBuiltinRegistry(seed uint64) *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r, seed); err != nil {
		// Only reachable if the built-in table itself has a duplicate.
		panic(err)
	}
	return r
}

func (s *fakeSource) dateOfBirth() Strategy {
	min := time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2006, 12, 31, 0, 0, 0, 0, time.UTC)
	return func(locale string, original graph.Value) (graph.Value, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return graph.String(s.f.DateRange(min, max).Format("2006-01-02")), nil
	}
}

// freeText is loosely format-preserving: the synthetic text has roughly
// the same length as the original, so downstream layout assumptions
// survive scrubbing.
func (s *fakeSource) freeText() Strategy {
	return func(locale string, original graph.Value) (graph.Value, error) {
		words := 8
		if orig, ok := original.(graph.String); ok && len(orig) > 0 {
			words = len(orig)/6 + 1
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		return graph.String(s.f.Sentence(words)), nil
	}
}

// digits is format-preserving: each decimal digit in the original is
// replaced with a random digit while every other rune (dashes, spaces,
// country prefixes) stays in place. Useful for account and document
// numbers whose layout carries meaning.
func (s *fakeSource) digits() Strategy {
	return func(locale string, original graph.Value) (graph.Value, error) {
		orig, ok := original.(graph.String)
		if !ok || len(orig) == 0 {
			s.mu.Lock()
			defer s.mu.Unlock()
			return graph.String(s.f.DigitN(10)), nil
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		var b strings.Builder
		b.Grow(len(orig))
		for _, r := range string(orig) {
			if unicode.IsDigit(r) {
				b.WriteRune(rune('0' + s.f.Number(0, 9)))
			} else {
				b.WriteRune(r)
			}
		}
		return graph.String(b.String()), nil
	}
}

func (s *fakeSource) age() Strategy {
	return func(locale string, original graph.Value) (graph.Value, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return graph.Int(int64(s.f.Number(18, 90))), nil
	}
}

func (s *fakeSource) latitude() Strategy {
	return func(locale string, original graph.Value) (graph.Value, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return graph.Float(s.f.Latitude()), nil
	}
}

func (s *fakeSource) longitude() Strategy {
	return func(locale string, original graph.Value) (graph.Value, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return graph.Float(s.f.Longitude()), nil
	}
}
