package completion

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"sunto-go/internal/logger"
	"sunto-go/internal/types"
)

const (
	DefaultModel = "gpt-4o-mini"

	temperature        = 0.7
	completionMaxToken = 2000
	enhanceMaxToken    = 500

	msgNoConfig = "Configurazione API mancante"
	msgRequired = "Prompt e contenuto sono richiesti"
	msgProvider = "Errore nell'elaborazione IA"
	msgEmpty    = "Nessun contenuto generato"
)

const systemPrompt = "Sei un assistente IA che elabora contenuti in italiano. Fornisci risposte chiare, ben strutturate e professionali. Mantieni sempre il tono formale e professionale."

const enhanceSystemPrompt = `Sei un esperto di prompt engineering per intelligenza artificiale. Il tuo compito è trasformare descrizioni semplici degli utenti in prompt professionali e ottimizzati per ottenere risultati precisi e coerenti dall'IA.

Regole per la creazione del prompt:
1. Inizia sempre con "Sei un assistente IA specializzato"
2. Includi il contesto e l'obiettivo specifico
3. Fornisci istruzioni chiare e strutturate
4. Specifica il formato della risposta desiderato
5. Aggiungi linee guida per mantenere qualità e coerenza
6. Mantieni un tono professionale e informativo
7. Il prompt deve essere in italiano

Esempio di trasformazione:
Input: "Voglio che riassuma il testo"
Output: "Sei un assistente IA specializzato nella sintesi di contenuti. Analizza il testo fornito e crea un riassunto conciso che catturi i punti chiave e le informazioni più importanti. Struttura il riassunto in modo logico e mantieni un tono professionale. Assicurati che il riassunto sia completo ma non superi il 30% della lunghezza originale del testo."

Crea un prompt ottimizzato basato sulla descrizione dell'utente.`

// Client issues single-shot chat completions. It never retries.
type Client struct {
	api   openai.Client
	model string
	ready bool
	log   *logger.Logger
}

type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logger.Logger
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &Client{
		api:   openai.NewClient(reqOpts...),
		model: model,
		ready: opts.APIKey != "",
		log:   log,
	}
}

// Complete runs prompt against content and returns the generated text
// untouched.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResult, error) {
	if strings.TrimSpace(req.Prompt) == "" || req.Content == "" {
		return types.CompletionResult{}, types.Errorf(types.KindValidation, msgRequired)
	}
	if !c.ready {
		return types.CompletionResult{}, types.Errorf(types.KindConfiguration, msgNoConfig)
	}

	userMsg := req.Prompt + "\n\nContenuto da elaborare:\n" + req.Content
	text, err := c.chat(ctx, systemPrompt, userMsg, completionMaxToken)
	if err != nil {
		return types.CompletionResult{}, err
	}
	c.log.WithFields(logrus.Fields{"action_type": req.ActionType, "length": len(text)}).Info("completion generated")
	return types.CompletionResult{Success: true, Content: text, ActionType: req.ActionType}, nil
}

// EnhancePrompt turns a plain description of a task into a structured
// Italian prompt.
func (c *Client) EnhancePrompt(ctx context.Context, description string) (string, error) {
	if !c.ready {
		return "", types.Errorf(types.KindConfiguration, msgNoConfig)
	}
	if strings.TrimSpace(description) == "" {
		return "", types.Errorf(types.KindValidation, "La descrizione è richiesta")
	}
	return c.chat(ctx, enhanceSystemPrompt, description, enhanceMaxToken)
}

func (c *Client) chat(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	log := c.log.WithFields(logrus.Fields{"component": "completion", "model": c.model})
	start := time.Now()

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", types.Wrap(types.KindInternal, "richiesta annullata", ctxErr)
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			log = log.WithField("http_status", apiErr.StatusCode)
		}
		log.WithError(err).Error("openai request failed")
		return "", types.Wrap(types.KindCompletionProvider, msgProvider, err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	if text == "" {
		log.Error("openai returned no content")
		return "", types.Errorf(types.KindCompletionProvider, msgEmpty)
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("openai request finished")
	return text, nil
}
