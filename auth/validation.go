package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
	pkgerrors "github.com/pkg/errors"
	"github.com/studykit/go-study-auth/accounts"
)

// ChannelKind tags which credential variant a sign-in request carries. The
// verifier dispatches on it; each variant is a pure function over (request,
// account, app policy).
type ChannelKind string

const (
	KindPassword   ChannelKind = "password"
	KindEmailToken ChannelKind = "email_token"
	KindPhoneToken ChannelKind = "phone_token"
	KindOAuth      ChannelKind = "oauth"
	KindReauth     ChannelKind = "reauth"
	KindUnknown    ChannelKind = "unknown"
)

// SignInRequest is the inbound authentication request: an app, exactly one
// identifying mechanism, and a secret where the channel requires one.
type SignInRequest struct {
	AppID      string `json:"app_id"`
	SubstudyID string `json:"substudy_id,omitempty"`

	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	ExternalID string `json:"external_id,omitempty"`

	Password string `json:"password,omitempty"`
	// Token carries an emailed-link or SMS-code value previously issued and
	// delivered out-of-band.
	Token       string `json:"token,omitempty"`
	ReauthToken string `json:"reauth_token,omitempty"`
	OAuthToken  string `json:"oauth_token,omitempty"`
}

// Validate checks the request shape: app ID present, a well-formed email
// when given, and exactly one identifying mechanism. Ambiguous
// identification is rejected, never guessed at.
func (r SignInRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.AppID, validation.Required.Error("app ID is required")),
		validation.Field(&r.Email, is.Email),
	); err != nil {
		return pkgerrors.Wrap(ErrInvalidRequest, err.Error())
	}

	identifiers := 0
	for _, v := range []string{r.Email, r.Phone, r.ExternalID} {
		if v != "" {
			identifiers++
		}
	}
	bearers := 0
	for _, v := range []string{r.ReauthToken, r.OAuthToken} {
		if v != "" {
			bearers++
		}
	}

	switch {
	case identifiers == 0 && bearers == 0:
		return pkgerrors.Wrap(ErrInvalidRequest, "an identifying channel or bearer token is required")
	case identifiers > 1:
		return pkgerrors.Wrap(ErrInvalidRequest, "only one identifying channel may be provided")
	case bearers > 1:
		return pkgerrors.Wrap(ErrInvalidRequest, "only one bearer token may be provided")
	case identifiers > 0 && bearers > 0:
		return pkgerrors.Wrap(ErrInvalidRequest, "identifying channel and bearer token are mutually exclusive")
	}
	return nil
}

// Kind returns which credential variant this request carries.
func (r SignInRequest) Kind() ChannelKind {
	switch {
	case r.OAuthToken != "":
		return KindOAuth
	case r.ReauthToken != "":
		return KindReauth
	case r.Token != "" && r.Email != "":
		return KindEmailToken
	case r.Token != "" && r.Phone != "":
		return KindPhoneToken
	case r.Password != "":
		return KindPassword
	default:
		return KindUnknown
	}
}

// IdentifierChannel returns the identifying channel and its value for
// identifier-based requests.
func (r SignInRequest) IdentifierChannel() (accounts.ChannelType, string) {
	switch {
	case r.Email != "":
		return accounts.ChannelEmail, r.Email
	case r.Phone != "":
		return accounts.ChannelPhone, r.Phone
	case r.ExternalID != "":
		return accounts.ChannelExternalID, r.ExternalID
	}
	return "", ""
}

// CanonicalPhone normalizes a phone number to E.164 so formatting variants
// of the same number cannot resolve to different accounts.
func CanonicalPhone(phone, defaultRegion string) (string, error) {
	parsed, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil {
		return "", pkgerrors.Wrap(ErrInvalidRequest, "phone number could not be parsed")
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", pkgerrors.Wrap(ErrInvalidRequest, "phone number is not valid")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
