package types

// ActionType labels the requested transformation. Values outside the
// predefined set are accepted as custom labels.
type ActionType string

const (
	ActionSummary   ActionType = "sommario"
	ActionKeyPoints ActionType = "punti"
	ActionNotes     ActionType = "note"
	ActionCustom    ActionType = "personalizzato"
)

type CompletionRequest struct {
	Prompt     string     `json:"prompt"`
	Content    string     `json:"content"`
	ActionType ActionType `json:"actionType"`
	// Refine, when set, asks for a refinement of Content and replaces
	// Prompt.
	Refine string `json:"refine,omitempty"`
}

type CompletionResult struct {
	Success    bool       `json:"success"`
	Content    string     `json:"content"`
	ActionType ActionType `json:"actionType"`
}

// WorkflowStep is one action in a workflow. An empty Prompt means the
// preset prompt of ActionType.
type WorkflowStep struct {
	ActionType ActionType `json:"actionType"`
	Prompt     string     `json:"prompt,omitempty"`
}

type StepResult struct {
	Index      int        `json:"index"`
	ActionType ActionType `json:"actionType"`
	Content    string     `json:"content"`
}
