package utils

import (
	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret returns the shared secret and the otpauth:// URL to
// render as a QR code.
func GenerateTOTPSecret(issuer, email string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

func VerifyTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
