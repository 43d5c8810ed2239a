package completion

import (
	"strings"

	"sunto-go/internal/types"
)

var presets = map[types.ActionType]string{
	types.ActionSummary:   "Crea un sommario conciso e ben strutturato del seguente contenuto, evidenziando i punti chiave e le informazioni più importanti:",
	types.ActionKeyPoints: "Estrai e organizza i punti principali dal seguente contenuto in una lista chiara e ordinata:",
	types.ActionNotes:     "Trasforma il seguente contenuto in note di studio ben organizzate, con sezioni chiare e punti salienti evidenziati:",
}

// PresetPrompt returns the built-in prompt for action. Custom actions have
// none.
func PresetPrompt(action types.ActionType) (string, bool) {
	p, ok := presets[action]
	return p, ok
}

// ResolvePrompt prefers an explicit prompt and falls back to the preset.
func ResolvePrompt(action types.ActionType, prompt string) (string, error) {
	if prompt != "" {
		return prompt, nil
	}
	if p, ok := PresetPrompt(action); ok {
		return p, nil
	}
	return "", types.Errorf(types.KindValidation, "Prompt mancante per l'azione %q", action)
}

// RefinementPrompt wraps a follow-up request on previously generated
// content.
func RefinementPrompt(request string) string {
	return `Raffina il seguente contenuto secondo questa richiesta: "` + strings.TrimSpace(request) + "\"\n\nContenuto da raffinare:"
}
