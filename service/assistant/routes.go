package assistant

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/legalconnect/legalconnect-server/cmd/utils"
)

const openAIChatURL = "https://api.openai.com/v1/chat/completions"

const systemPrompt = `You are a legal assistant bot for LegalConnect.
Provide helpful, clear, and accurate information about legal matters.
Remember to:
- Always state that you are not a lawyer and this is not legal advice
- Suggest consulting with a qualified lawyer for specific situations
- Include references to relevant laws when possible
- Keep responses concise but informative
- Use simple language and avoid excessive legal jargon`

// Fallbacks shown instead of an error page when the upstream model is
// unavailable. The assistant degrades, the endpoint never fails.
const (
	fallbackGeneric   = "I apologize, but I'm having trouble processing your question right now. Please try again later or contact a lawyer through our directory for assistance with your legal matter."
	fallbackAuth      = "I'm unable to process requests due to an authentication error. Please contact support."
	fallbackRateLimit = "I'm temporarily unable to process requests due to high demand. Please try again in a few moments."
	fallbackQuota     = "I'm temporarily unable to process requests. Please try again later or contact a lawyer through our directory."
)

type Handler struct {
	httpClient *http.Client
}

func NewHandler() *Handler {
	return &Handler{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ai/ask", utils.AuthMiddleware(h.Ask)).Methods("POST")
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		utils.WriteError(w, models.NewValidationError("Question is required"), "")
		return
	}

	answer := h.getLegalAssistance(req.Question)
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"answer": answer}, "")
}

func (h *Handler) getLegalAssistance(question string) string {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("AI service error: OPENAI_API_KEY is not set")
		return fallbackGeneric
	}

	payload := map[string]interface{}{
		"model": "gpt-4o-mini",
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": question},
		},
		"max_tokens":  1024,
		"temperature": 0.2,
	}

	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequest("POST", openAIChatURL, bytes.NewBuffer(body))
	if err != nil {
		log.Printf("AI service error: %v", err)
		return fallbackGeneric
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("AI service error: %v", err)
		return fallbackGeneric
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fallbackAuth
	case http.StatusTooManyRequests:
		return fallbackRateLimit
	case http.StatusPaymentRequired:
		return fallbackQuota
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		log.Printf("AI service error: %v", err)
		return fallbackGeneric
	}

	if completion.Error != nil {
		log.Printf("AI service error: %s", completion.Error.Message)
		if strings.Contains(completion.Error.Message, "rate limit") {
			return fallbackRateLimit
		}
		if strings.Contains(completion.Error.Message, "quota") {
			return fallbackQuota
		}
		return fallbackGeneric
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		log.Println("AI service error: no response text")
		return fallbackGeneric
	}

	return completion.Choices[0].Message.Content
}
