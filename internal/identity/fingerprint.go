package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Signals are the client environment attributes a fingerprint is derived
// from. They are self-reported by the browser, so the resulting hash is an
// abuse heuristic, not an authenticator: anyone who controls the client can
// produce any fingerprint they like.
type Signals struct {
	ScreenWidth  int    `json:"screenWidth"`
	ScreenHeight int    `json:"screenHeight"`
	ColorDepth   int    `json:"colorDepth"`
	Timezone     string `json:"timezone"`
	Locale       string `json:"locale"`
	Platform     string `json:"platform"`
	UserAgent    string `json:"userAgent"`
	CanvasHash   string `json:"canvasHash"`
}

// ComputeFingerprint derives a fixed-length, non-reversible device signature
// from the signals. Deterministic for identical signals; any contributing
// signal changing yields a different hash. There is no stability contract
// across browser upgrades.
func ComputeFingerprint(sig Signals) string {
	parts := []string{
		fmt.Sprintf("%dx%dx%d", sig.ScreenWidth, sig.ScreenHeight, sig.ColorDepth),
		sig.Timezone,
		sig.Locale,
		sig.Platform,
		sig.UserAgent,
		sig.CanvasHash,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
