package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tablepilot/internal/domain/reservation"
	"tablepilot/internal/pkg/config"
	"tablepilot/internal/pkg/errs"
)

const extractionPrompt = `You are a restaurant reservation assistant. Extract the following information from the customer text and answer with a JSON object only, no prose:
{"name": "customer name", "date": "YYYY-MM-DD", "time": "HH:MM", "guests": number}.
Use null for any field that cannot be determined from the text.
Customer text: %q`

// GeminiExtractor issues one structured generateContent request per message.
// The wait is bounded by the configured timeout; there is no retry.
type GeminiExtractor struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

func NewGeminiExtractor(cfg config.ExtractorConfig, logger *slog.Logger) *GeminiExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiExtractor{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// rawCandidate tolerates the shapes the service actually returns: JSON null,
// the literal string "null", and numbers delivered as strings.
type rawCandidate struct {
	Name   json.RawMessage `json:"name"`
	Date   json.RawMessage `json:"date"`
	Time   json.RawMessage `json:"time"`
	Guests json.RawMessage `json:"guests"`
}

func (g *GeminiExtractor) Extract(ctx context.Context, rawText string) (reservation.CandidateFields, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: fmt.Sprintf(extractionPrompt, rawText)}},
		}},
	})
	if err != nil {
		return reservation.CandidateFields{}, errs.Mark(err, ErrExtractionFailed)
	}

	url := g.endpoint + "?key=" + g.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return reservation.CandidateFields{}, errs.Mark(err, ErrExtractionFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("extractor call failed", "error", err, "elapsed", time.Since(start))
		return reservation.CandidateFields{}, errs.Mark(err, ErrExtractionFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return reservation.CandidateFields{}, errs.Mark(
			errs.New("extractor returned status "+strconv.Itoa(resp.StatusCode)), ErrExtractionFailed)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return reservation.CandidateFields{}, errs.Mark(err, ErrExtractionFailed)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return reservation.CandidateFields{}, errs.Mark(errs.New("empty extractor response"), ErrExtractionFailed)
	}

	return parseCandidate(decoded.Candidates[0].Content.Parts[0].Text)
}

// parseCandidate strips any delimiter wrapping, decodes the JSON payload and
// coerces fields leniently: a single bad field downgrades to unknown, only a
// fully unusable payload fails the extraction.
func parseCandidate(text string) (reservation.CandidateFields, error) {
	cleaned := stripFences(text)

	var raw rawCandidate
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return reservation.CandidateFields{}, errs.Mark(err, ErrExtractionFailed)
	}

	cand := reservation.CandidateFields{
		Name:   coerceString(raw.Name),
		Date:   coerceString(raw.Date),
		Time:   coerceString(raw.Time),
		Guests: coerceGuests(raw.Guests),
	}
	if cand.IsEmpty() {
		return reservation.CandidateFields{}, errs.Mark(errs.New("all candidate fields unusable"), ErrExtractionFailed)
	}
	return cand, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func coerceString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func coerceGuests(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		// Some responses quote the number.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		parsed, perr := strconv.Atoi(strings.TrimSpace(s))
		if perr != nil {
			return nil
		}
		n = float64(parsed)
	}
	v := int(n)
	if float64(v) != n || v < 1 {
		return nil
	}
	return &v
}
