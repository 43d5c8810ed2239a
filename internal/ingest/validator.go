// Package ingest holds the size policy applied to uploads before any
// provider is contacted.
package ingest

import (
	"fmt"
	"strings"

	"sunto-go/internal/types"
)

const MiB int64 = 1 << 20

// Limits maps each ingestion mode to its maximum size in bytes.
type Limits map[types.Mode]int64

func DefaultLimits() Limits {
	return Limits{
		types.ModeMedia:    300 * MiB,
		types.ModeDocument: 10 * MiB,
	}
}

// ParseMode normalizes a mode name. Empty means media.
func ParseMode(s string) (types.Mode, error) {
	switch types.Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", types.ModeMedia:
		return types.ModeMedia, nil
	case types.ModeDocument:
		return types.ModeDocument, nil
	default:
		return "", types.Errorf(types.KindValidation, "modalità di caricamento non valida: %q", s)
	}
}

// Max returns the ceiling for mode, falling back to the default table.
func (l Limits) Max(mode types.Mode) (int64, bool) {
	if max, ok := l[mode]; ok {
		return max, true
	}
	max, ok := DefaultLimits()[mode]
	return max, ok
}

// Largest returns the highest ceiling in the table.
func (l Limits) Largest() int64 {
	var largest int64
	for _, mode := range []types.Mode{types.ModeMedia, types.ModeDocument} {
		if max, ok := l.Max(mode); ok && max > largest {
			largest = max
		}
	}
	return largest
}

// Validate fails with KindFileTooLarge when size exceeds the ceiling of
// mode.
func (l Limits) Validate(size int64, mode types.Mode) error {
	max, ok := l.Max(mode)
	if !ok {
		return types.Errorf(types.KindValidation, "modalità di caricamento non valida: %q", mode)
	}
	if size < 0 {
		return types.Errorf(types.KindValidation, "dimensione del file non valida")
	}
	if size > max {
		return l.TooLarge(mode)
	}
	return nil
}

// TooLarge is the FileTooLarge error for mode, quoting the ceiling in
// effect.
func (l Limits) TooLarge(mode types.Mode) error {
	max, _ := l.Max(mode)
	return &types.Error{Kind: types.KindFileTooLarge, Message: tooLargeMessage(mode, max)}
}

func tooLargeMessage(mode types.Mode, max int64) string {
	if mode == types.ModeDocument {
		return fmt.Sprintf("Il documento supera il limite massimo di %s. Ti consigliamo di dividere o semplificare il contenuto.", formatSize(max))
	}
	return fmt.Sprintf("Il file è troppo grande per AssemblyAI (max %s). Comprimi o accorcia il file.", formatSize(max))
}

func formatSize(n int64) string {
	switch {
	case n >= MiB && n%MiB == 0:
		return fmt.Sprintf("%dMB", n/MiB)
	case n >= MiB:
		return fmt.Sprintf("%.1fMB", float64(n)/float64(MiB))
	default:
		return fmt.Sprintf("%d byte", n)
	}
}
