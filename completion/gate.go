package completion

import (
	"context"
	"fmt"
	"strings"

	"servigo-client/api"
	"servigo-client/models"
)

// DefaultCodeLength is used until the server declares its own OTP policy.
const DefaultCodeLength = 6

// SanitizeCode normalizes raw input to digits only, truncated to length.
// "12a3456xyz" with length 6 becomes "123456".
func SanitizeCode(input string, length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	var b strings.Builder
	for _, r := range input {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == length {
			break
		}
	}
	return b.String()
}

// Gate mediates the user-side half of the completion handshake: it holds the
// entered code, gates submission on the server-declared code length and keeps
// the server's rejection reason for inline display. The server alone
// generates, validates and invalidates codes.
type Gate struct {
	client *api.Client

	codeLength  int
	entered     string
	inlineError string
}

// NewGate creates a gate with the default 6-digit policy. Call AdoptPolicy
// once a server-supplied OTP record is available.
func NewGate(client *api.Client) *Gate {
	return &Gate{client: client, codeLength: DefaultCodeLength}
}

// AdoptPolicy takes the code length from a server-supplied OTP record instead
// of assuming backend policy.
func (g *Gate) AdoptPolicy(otp *models.CompletionOTP) {
	if otp != nil && otp.CodeLength() > 0 {
		g.codeLength = otp.CodeLength()
	}
}

// CodeLength returns the active code length.
func (g *Gate) CodeLength() int {
	return g.codeLength
}

// SetInput sanitizes and stores the user's input. Any previous inline error is
// cleared because the user is editing.
func (g *Gate) SetInput(raw string) {
	g.entered = SanitizeCode(raw, g.codeLength)
	g.inlineError = ""
}

// Input returns the sanitized entered value. It survives a failed verify so
// the user can see what was rejected.
func (g *Gate) Input() string {
	return g.entered
}

// CanSubmit reports whether the verify action is enabled: exactly codeLength
// digits entered.
func (g *Gate) CanSubmit() bool {
	return len(g.entered) == g.codeLength
}

// InlineError returns the server's last rejection reason, verbatim, or "".
func (g *Gate) InlineError() string {
	return g.inlineError
}

// Verify submits the entered code. On success the entered value is cleared and
// the caller should re-fetch the booking (its status flips server-side). On a
// server rejection the reason is kept for inline display and the entered value
// is left untouched.
func (g *Gate) Verify(ctx context.Context, bookingID uint) error {
	if !g.CanSubmit() {
		return fmt.Errorf("enter the %d-digit completion code first", g.codeLength)
	}
	err := g.client.VerifyAndComplete(ctx, bookingID, g.entered)
	if err != nil {
		if apiErr, ok := api.IsAPIError(err); ok {
			g.inlineError = apiErr.Detail
		}
		return err
	}
	g.entered = ""
	g.inlineError = ""
	return nil
}

// RequestFromServicer asks the server to nudge the servicer to share the code.
// Fire-and-forget.
func (g *Gate) RequestFromServicer(ctx context.Context, bookingID uint) error {
	return g.client.RequestCompletionOTP(ctx, bookingID)
}
