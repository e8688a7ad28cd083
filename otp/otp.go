package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultCooldown = 60 * time.Second
	DefaultTTL      = 5 * time.Minute

	codeDigits = 6
)

var (
	ErrInvalidPhone = errors.New("otp: invalid phone number")
	ErrRateLimited  = errors.New("otp: code requested too recently")

	// mainland China mobile numbers
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// Sender delivers a code to a phone number; validFor is how long the code stays usable
type Sender interface {
	Send(ctx context.Context, phone, code string, validFor time.Duration) error
}

// Record is what we remember about the last code sent to a number
type Record struct {
	Code       string
	ExpiresAt  time.Time
	Attempts   int
	LastSentAt time.Time
}

// Result of a successful Request
type Result struct {
	Code      string
	Delivered bool // false when no sender is configured or the sender failed
}

type Config struct {
	Sender   Sender // optional; codes are only logged without one
	Logger   *logrus.Entry
	Cooldown time.Duration
	TTL      time.Duration
	Now      func() time.Time
	Rand     io.Reader // crypto/rand.Reader by default
}

/*
	Service hands out codes and keeps them in process memory. Records are replaced on resend and never
	deleted; nothing is shared between instances.
*/
type Service struct {
	mu      sync.Mutex
	records map[string]*Record

	sender   Sender
	log      *logrus.Entry
	cooldown time.Duration
	ttl      time.Duration
	now      func() time.Time
	rand     io.Reader
}

func New(conf *Config) *Service {
	if conf == nil {
		conf = &Config{}
	}

	s := &Service{
		records:  make(map[string]*Record),
		sender:   conf.Sender,
		log:      conf.Logger,
		cooldown: conf.Cooldown,
		ttl:      conf.TTL,
		now:      conf.Now,
		rand:     conf.Rand,
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	s.log = s.log.WithField("component", "otp")
	if s.cooldown <= 0 {
		s.cooldown = DefaultCooldown
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	return s
}

// ValidPhone reports whether phone is an 11 digit mobile number
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

/*
	Request issues a new code for phone. The number is checked before anything is stored, and a second request
	within the cooldown fails with ErrRateLimited. A delivery failure is logged and reported through
	Result.Delivered rather than as an error so the caller can still answer the request.
*/
func (s *Service) Request(ctx context.Context, phone string) (*Result, error) {
	if !ValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	s.mu.Lock()
	now := s.now()
	if prev, ok := s.records[phone]; ok && now.Sub(prev.LastSentAt) < s.cooldown {
		s.mu.Unlock()
		return nil, ErrRateLimited
	}
	s.records[phone] = &Record{
		Code:       code,
		ExpiresAt:  now.Add(s.ttl),
		LastSentAt: now,
	}
	s.mu.Unlock()

	res := &Result{Code: code}
	if s.sender != nil {
		if err := s.sender.Send(ctx, phone, code, s.ttl); err != nil {
			s.log.WithError(err).WithField("phone", phone).Warn("sms delivery failed")
		} else {
			res.Delivered = true
		}
	}

	if !res.Delivered {
		// no gateway; the code only goes to the log
		s.log.WithFields(logrus.Fields{"phone": phone, "code": code}).Info("otp issued without sms")
	}
	return res, nil
}

// Lookup returns a copy of the record for phone
func (s *Service) Lookup(phone string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[phone]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Expired reports whether r is past its expiry at the service's current time
func (s *Service) Expired(r Record) bool {
	return !s.now().Before(r.ExpiresAt)
}

func (s *Service) generate() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(codeDigits), nil)

	n, err := rand.Int(s.rand, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
