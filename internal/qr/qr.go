// AngelaMos | 2026
// qr.go

// Package qr renders and parses event check-in codes.
package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/hotdog/elotto/internal/core"
)

const (
	PayloadPrefix = "event:"
	DefaultSize   = 256
)

func Payload(eventID string) string {
	return PayloadPrefix + eventID
}

// ParsePayload extracts the event id from a scanned code. Both
// "event:<id>" and a bare id are accepted.
func ParsePayload(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(id, PayloadPrefix); ok {
		id = strings.TrimSpace(rest)
	}

	if err := core.ValidateEventID(id); err != nil {
		return "", fmt.Errorf("parse qr payload: %w", err)
	}
	return id, nil
}

type Generator struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{size: size, level: qrcode.Medium}
}

// PNG renders the check-in code for eventID.
func (g *Generator) PNG(eventID string) ([]byte, error) {
	if _, err := ParsePayload(eventID); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(Payload(eventID), g.level, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %s: %w", eventID, err)
	}
	return png, nil
}
