package auth

import (
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"
)

const verificationSubject = "Verify your email address"

// DefaultActivationPath is where RegisterAuthRoutes serves activation when
// mounted under /auth. Links are <base>/<path>/<userID>/<token>.
const DefaultActivationPath = "/auth/activate"

const verificationTemplate = `<!DOCTYPE html>
<html>
<body>
	<h1>Hello{% if name %}, {{ name }}{% endif %}!</h1>
	<p>Please confirm your email address by following the link below.</p>
	<p><a href="{{ url }}">{{ url }}</a></p>
	<p>The link expires in {{ expires_in }}.</p>
</body>
</html>`

// VerificationEmail renders the account activation email
type VerificationEmail struct {
	baseURL        string
	activationPath string
	tpl            *pongo2.Template
}

// NewVerificationEmail builds the renderer. An empty template uses the
// built in one. baseURL is the externally visible origin, APP_URL:APP_PORT.
func NewVerificationEmail(baseURL, template string) (*VerificationEmail, error) {
	if template == "" {
		template = verificationTemplate
	}

	tpl, err := pongo2.FromString(template)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse verification email template").
			WithTextCode(TextCodeInvalidConfig)
	}

	return &VerificationEmail{
		baseURL:        strings.TrimRight(baseURL, "/"),
		activationPath: DefaultActivationPath,
		tpl:            tpl,
	}, nil
}

// WithActivationPath sets the path the activation route is mounted on.
// An empty path keeps DefaultActivationPath.
func (v *VerificationEmail) WithActivationPath(path string) *VerificationEmail {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		v.activationPath = DefaultActivationPath
		return v
	}
	v.activationPath = "/" + path
	return v
}

// ActivationURL is the link redeemed by VerifyEmail
func (v *VerificationEmail) ActivationURL(userID int64, token string) string {
	return fmt.Sprintf("%s%s/%d/%s", v.baseURL, v.activationPath, userID, token)
}

// Render returns the subject and HTML body for user
func (v *VerificationEmail) Render(user *User, token string, expiresIn string) (string, string, error) {
	html, err := v.tpl.Execute(pongo2.Context{
		"name":       user.Name,
		"email":      user.Email,
		"url":        v.ActivationURL(user.ID, token),
		"expires_in": expiresIn,
	})
	if err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render verification email")
	}
	return verificationSubject, html, nil
}
