package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"exchange-marketplace-backend/internal/features/auth/models"
)

var (
	ErrMissingFields    = errors.New("missing hash or auth_date")
	ErrAuthDataExpired  = errors.New("auth data expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

// allowedFields — канонический набор полей Telegram Login. hash и любые
// транспортные поля (state и т.п.) в data-check-string не входят.
var allowedFields = map[string]struct{}{
	"id":         {},
	"first_name": {},
	"last_name":  {},
	"username":   {},
	"photo_url":  {},
	"auth_date":  {},
}

// Verifier validates Telegram Login Widget payloads. The signing key is
// SHA-256 of the bot token, per the widget protocol.
type Verifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	return &Verifier{
		botToken: botToken,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify validates the signed field set and returns the verified profile.
func (v *Verifier) Verify(fields map[string]string) (*models.TelegramProfile, error) {
	receivedHash := fields["hash"]
	authDateStr := fields["auth_date"]
	if receivedHash == "" || authDateStr == "" {
		return nil, ErrMissingFields
	}

	authDate, err := strconv.ParseInt(authDateStr, 10, 64)
	if err != nil {
		return nil, ErrMissingFields
	}

	if v.now().Unix()-authDate > int64(v.maxAge.Seconds()) {
		return nil, ErrAuthDataExpired
	}

	computed := v.computeHash(fields)
	if !hmac.Equal([]byte(computed), []byte(receivedHash)) {
		return nil, ErrInvalidSignature
	}

	profile := &models.TelegramProfile{
		Username:  fields["username"],
		FirstName: fields["first_name"],
		LastName:  fields["last_name"],
		PhotoURL:  fields["photo_url"],
		AuthDate:  authDate,
	}
	if idStr, ok := fields["id"]; ok {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, ErrMissingFields
		}
		profile.ID = id
	}

	return profile, nil
}

func (v *Verifier) computeHash(fields map[string]string) string {
	secretKey := sha256.Sum256([]byte(v.botToken))

	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(dataCheckString(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// dataCheckString собирает строки key=value по отсортированным ключам
// из allow-list, соединённые переводом строки.
func dataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		if _, ok := allowedFields[k]; !ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	return strings.Join(pairs, "\n")
}
